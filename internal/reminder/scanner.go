// Package reminder selects financial items that are about to expire and
// sends renewal reminders over WhatsApp.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/finboard/backend/internal/model"
)

// DefaultLookaheadDays is the forward-looking window for renewal reminders.
const DefaultLookaheadDays = 14

const dateLayout = "2006-01-02"

// Sender delivers one outbound message. Satisfied by messaging.Client.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) (string, error)
}

// categoryNames maps category codes to Hebrew display labels. Unknown codes
// fall back to the raw code.
var categoryNames = map[model.Category]string{
	model.CategoryInsurance:   "ביטוח",
	model.CategoryFinance:     "כספים",
	model.CategoryInvestments: "השקעות",
	model.CategoryAssets:      "נכסים",
}

// Result reports how a reminder run went. A failed send never aborts the
// run; it is counted and the remaining reminders are still attempted.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Scan returns the items due for a renewal reminder: active, carrying an
// expiry date, and expiring within [today, today+lookaheadDays], both ends
// inclusive. Items with unparseable expiry dates are skipped.
func Scan(items []*model.FinancialItem, today time.Time, lookaheadDays int) []model.ReminderItem {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}

	day := truncateToDay(today)
	windowEnd := day.AddDate(0, 0, lookaheadDays)

	var due []model.ReminderItem
	for _, item := range items {
		if item.Status != model.StatusActive || item.ExpiryDate == "" {
			continue
		}
		expiry, err := time.Parse(dateLayout, item.ExpiryDate)
		if err != nil {
			log.Printf("[Reminder] Skipping item %s: bad expiry date %q", item.ID, item.ExpiryDate)
			continue
		}
		if expiry.Before(day) || expiry.After(windowEnd) {
			continue
		}
		due = append(due, model.ReminderItem{
			ID:         item.ID,
			Name:       item.Name,
			ExpiryDate: item.ExpiryDate,
			Category:   item.Category,
			UserID:     item.UserID,
		})
	}
	return due
}

// FormatReminder renders the fixed multi-line reminder text for one item.
func FormatReminder(item model.ReminderItem, today time.Time) string {
	expiry, err := time.Parse(dateLayout, item.ExpiryDate)
	if err != nil {
		expiry = truncateToDay(today)
	}
	days := daysBetween(truncateToDay(today), expiry)

	categoryName, ok := categoryNames[item.Category]
	if !ok {
		categoryName = string(item.Category)
	}

	return fmt.Sprintf("🔔 תזכורת: %s (%s)\nתאריך חידוש: %s\nנותרו %d ימים",
		item.Name, categoryName, expiry.Format("02/01/2006"), days)
}

// SendAll sends one reminder per due item to a single destination, strictly
// sequentially so that one failure cannot mask or abort the rest.
func SendAll(ctx context.Context, sender Sender, chatID string, items []model.ReminderItem, today time.Time) Result {
	var res Result
	for _, item := range items {
		if _, err := sender.SendMessage(ctx, chatID, FormatReminder(item, today)); err != nil {
			log.Printf("[Reminder] Failed to send reminder for %s: %v", item.Name, err)
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res
}

// daysBetween is the calendar-day difference, not sub-day precision.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
