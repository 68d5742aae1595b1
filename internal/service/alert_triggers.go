package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/finboard/backend/internal/model"
	"github.com/finboard/backend/internal/reminder"
	"github.com/finboard/backend/internal/store"
)

// AlertTrigger creates in-app alerts in reaction to item changes. Triggers
// are best-effort side effects: a failed trigger is logged, never surfaced to
// the caller.
type AlertTrigger struct {
	store store.Store
}

func NewAlertTrigger(s store.Store) *AlertTrigger {
	return &AlertTrigger{store: s}
}

// alertCategoryFor maps item categories onto the alert category vocabulary.
func alertCategoryFor(c model.Category) string {
	switch c {
	case model.CategoryInsurance:
		return "insurance"
	case model.CategoryInvestments:
		return "investment"
	default:
		return "finance"
	}
}

// ItemExpiryUpcoming raises a renewal alert when the item expires within the
// reminder window. Deduplicated per item via the alert's reference ID, so a
// re-save of the same item never stacks a second alert.
func (t *AlertTrigger) ItemExpiryUpcoming(ctx context.Context, item *model.FinancialItem, now time.Time) {
	due := reminder.Scan([]*model.FinancialItem{item}, now, reminder.DefaultLookaheadDays)
	if len(due) == 0 {
		return
	}

	exists, err := t.store.HasAlertForReference(ctx, item.UserID, item.ID)
	if err != nil {
		log.Printf("[AlertTrigger] Failed to check existing alerts for item %s: %v", item.ID, err)
		return
	}
	if exists {
		return
	}

	expiry, err := time.Parse(dateLayout, item.ExpiryDate)
	if err != nil {
		return
	}
	// Truncate on the calendar day, not the epoch day, so a non-UTC clock
	// near midnight cannot shift the urgency threshold.
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daysLeft := int(expiry.Sub(day).Hours() / 24)

	alertType := model.AlertWarning
	if daysLeft <= 7 {
		alertType = model.AlertUrgent
	}

	alert := &model.Alert{
		ID:          uuid.New().String(),
		UserID:      item.UserID,
		Title:       fmt.Sprintf("%s עומד לפוג", item.Name),
		Description: fmt.Sprintf("תוקף %s מסתיים בתאריך %s", item.Name, expiry.Format("02/01/2006")),
		Date:        now.Format(dateLayout),
		Type:        alertType,
		Category:    alertCategoryFor(item.Category),
		ReferenceID: item.ID,
	}
	if err := t.store.CreateAlert(ctx, alert); err != nil {
		log.Printf("[AlertTrigger] Failed to create expiry alert for item %s: %v", item.ID, err)
	}
}
