package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/finboard/backend/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func activeItem(id, expiry string) *model.FinancialItem {
	return &model.FinancialItem{
		ID:         id,
		UserID:     "user-1",
		Name:       "ביטוח רכב מקיף",
		Status:     model.StatusActive,
		Category:   model.CategoryInsurance,
		ExpiryDate: expiry,
	}
}

func TestScanWindowBoundaries(t *testing.T) {
	today := day("2026-01-12")

	tests := []struct {
		name   string
		expiry string
		want   bool
	}{
		{"expires today", "2026-01-12", true},
		{"expires mid-window", "2026-01-20", true},
		{"expires exactly at window end", "2026-01-26", true},
		{"expires one day past window", "2026-01-27", false},
		{"already expired yesterday", "2026-01-11", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := Scan([]*model.FinancialItem{activeItem("1", tt.expiry)}, today, 14)
			if got := len(due) == 1; got != tt.want {
				t.Errorf("Scan selected=%v, want %v for expiry %s", got, tt.want, tt.expiry)
			}
		})
	}
}

func TestScanSkipsNonActive(t *testing.T) {
	today := day("2026-01-12")
	for _, status := range []model.ItemStatus{model.StatusFrozen, model.StatusExpired} {
		item := activeItem("1", "2026-01-20")
		item.Status = status
		if due := Scan([]*model.FinancialItem{item}, today, 14); len(due) != 0 {
			t.Errorf("status %q must never be selected, got %d items", status, len(due))
		}
	}
}

func TestScanSkipsMissingOrBadExpiry(t *testing.T) {
	today := day("2026-01-12")
	items := []*model.FinancialItem{
		activeItem("1", ""),
		activeItem("2", "not-a-date"),
		activeItem("3", "2026-01-15"),
	}
	due := Scan(items, today, 14)
	if len(due) != 1 || due[0].ID != "3" {
		t.Fatalf("expected only item 3, got %+v", due)
	}
}

func TestScanDefaultLookahead(t *testing.T) {
	today := day("2026-01-12")
	due := Scan([]*model.FinancialItem{activeItem("1", "2026-01-26")}, today, 0)
	if len(due) != 1 {
		t.Fatalf("default 14-day lookahead must include today+14")
	}
}

func TestFormatReminder(t *testing.T) {
	today := day("2026-01-12")
	item := model.ReminderItem{
		ID:         "3",
		Name:       "ביטוח רכב מקיף",
		ExpiryDate: "2026-01-26",
		Category:   model.CategoryInsurance,
		UserID:     "user-1",
	}

	msg := FormatReminder(item, today)

	for _, want := range []string{"🔔", "ביטוח רכב מקיף", "(ביטוח)", "26/01/2026", "נותרו 14 ימים"} {
		if !strings.Contains(msg, want) {
			t.Errorf("reminder %q missing %q", msg, want)
		}
	}
}

func TestFormatReminderUnknownCategoryFallsBack(t *testing.T) {
	item := model.ReminderItem{Name: "x", ExpiryDate: "2026-01-20", Category: "crypto"}
	msg := FormatReminder(item, day("2026-01-12"))
	if !strings.Contains(msg, "(crypto)") {
		t.Errorf("unknown category must render its raw code, got %q", msg)
	}
}

// fakeSender fails for configured item names and records sent messages.
type fakeSender struct {
	failFor map[string]bool
	sent    []string
}

func (f *fakeSender) SendMessage(_ context.Context, _, text string) (string, error) {
	for name := range f.failFor {
		if strings.Contains(text, name) {
			return "", errors.New("send failed")
		}
	}
	f.sent = append(f.sent, text)
	return "msg-id", nil
}

func TestSendAllIsolatesFailures(t *testing.T) {
	today := day("2026-01-12")
	items := []model.ReminderItem{
		{Name: "פוליסה א", ExpiryDate: "2026-01-15", Category: model.CategoryInsurance},
		{Name: "פוליסה ב", ExpiryDate: "2026-01-16", Category: model.CategoryInsurance},
		{Name: "פוליסה ג", ExpiryDate: "2026-01-17", Category: model.CategoryInsurance},
	}
	sender := &fakeSender{failFor: map[string]bool{"פוליסה ב": true}}

	res := SendAll(context.Background(), sender, "972500000000@c.us", items, today)

	if res.Sent != 2 || res.Failed != 1 {
		t.Fatalf("got %+v, want {Sent:2 Failed:1}", res)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected remaining reminders to still be attempted, sent %d", len(sender.sent))
	}
}
