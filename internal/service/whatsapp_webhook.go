package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/finboard/backend/internal/assistant"
	"github.com/finboard/backend/internal/intent"
	"github.com/finboard/backend/internal/messaging"
	"github.com/finboard/backend/internal/model"
	"github.com/finboard/backend/internal/store"
)

const (
	replyNoAccount  = "❌ לא נמצא חשבון מקושר למספר זה. יש להתחבר לאפליקציה ולקשר את המספר תחילה."
	replyAddFailed  = "❌ שגיאה בהוספת הפריט. נסה שוב מאוחר יותר."
	replyNoCategory = "❌ לא הצלחתי לזהות קטגוריה. נסה למשל: הוסף ביטוח רכב הראל 5000"
	replyHelp       = "👋 שלום! אפשר להוסיף פריט (\"הוסף ביטוח רכב הראל 5000\") או לשאול שאלה (\"כמה אני משלם על ביטוח?\")."
)

// HandleWhatsAppWebhook processes one inbound gateway notification. Handled
// outcomes, including a missing linked account and a failed item add, reply
// over WhatsApp and return 200; 500 is reserved for unhandled internal
// failures.
func (s *FinanceService) HandleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	var msg messaging.WebhookMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook body")
		return
	}

	// Outgoing echoes and non-text notifications are acknowledged untouched.
	if msg.Type != "incoming" || msg.TextMessage == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	ctx := r.Context()
	phone := strings.TrimSuffix(msg.ChatID, "@c.us")

	user, err := s.lookupUserForPhone(ctx, phone)
	if err != nil {
		if err == store.ErrNotFound {
			s.reply(ctx, msg.ChatID, replyNoAccount)
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to look up user: %v", err))
		return
	}

	cmd := intent.Classify(msg.TextMessage)
	log.Printf("[Webhook] Message from %s classified as %s", phone, cmd.Action)

	switch cmd.Action {
	case model.ActionAdd:
		s.handleAddCommand(ctx, msg.ChatID, user, cmd)
	case model.ActionQuery:
		snap, err := s.loadSnapshot(ctx, user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load data: %v", err))
			return
		}
		s.reply(ctx, msg.ChatID, s.responder.Respond(ctx, cmd.Query, snap))
	default:
		s.reply(ctx, msg.ChatID, replyHelp)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// lookupUserForPhone resolves the sender: the store's phone field first, then
// the auth directory for users who registered the number only with the
// identity provider.
func (s *FinanceService) lookupUserForPhone(ctx context.Context, phone string) (*model.User, error) {
	user, err := s.store.GetUserByPhone(ctx, phone)
	if err != store.ErrNotFound {
		return user, err
	}
	if s.directory == nil {
		return nil, store.ErrNotFound
	}

	uid, dirErr := s.directory.LookupUserByPhone(ctx, phone)
	if dirErr != nil {
		log.Printf("[Webhook] Directory lookup for %s failed: %v", phone, dirErr)
		return nil, store.ErrNotFound
	}
	return s.store.GetUser(ctx, uid)
}

// handleAddCommand materializes a parsed add command into a stored item and
// confirms over WhatsApp. A missing category and a storage failure both reply
// with an error message; they are handled outcomes, not server errors.
func (s *FinanceService) handleAddCommand(ctx context.Context, chatID string, user *model.User, cmd model.ParsedCommand) {
	if cmd.Category == "" {
		s.reply(ctx, chatID, replyNoCategory)
		return
	}

	item := materializeCommand(cmd, user.ID, s.now().Format(dateLayout))
	if err := s.store.CreateItem(ctx, item); err != nil {
		log.Printf("[Webhook] Failed to create item for user %s: %v", user.ID, err)
		s.reply(ctx, chatID, replyAddFailed)
		return
	}

	s.trigger.ItemExpiryUpcoming(ctx, item, s.now())
	s.indexItem(ctx, item)

	confirm := fmt.Sprintf("✅ נוסף בהצלחה!\n📝 %s\n🏦 %s\n📁 %s", item.Name, item.Institution, item.Category)
	if cmd.HasValue {
		confirm += "\n💰 " + assistant.FormatShekels(item.Value)
	}
	s.reply(ctx, chatID, confirm)
}

// materializeCommand fills the defaults an inbound message cannot carry: an
// unnamed item, an unnamed institution, a generic product type and a zero
// value.
func materializeCommand(cmd model.ParsedCommand, userID, today string) *model.FinancialItem {
	name := cmd.Name
	if name == "" {
		name = intent.DefaultItemName
	}
	institution := cmd.Institution
	if institution == "" {
		institution = "לא צוין"
	}
	return &model.FinancialItem{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Institution: institution,
		ProductType: "כללי",
		Value:       cmd.Value,
		Category:    cmd.Category,
		Status:      model.StatusActive,
		LastUpdated: today,
	}
}

// reply sends a WhatsApp message, best-effort. With no messenger configured
// the reply is logged and dropped.
func (s *FinanceService) reply(ctx context.Context, chatID, text string) {
	if s.messenger == nil {
		log.Printf("[Webhook] No messenger configured, dropping reply to %s", chatID)
		return
	}
	if _, err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("[Webhook] Failed to send reply to %s: %v", chatID, err)
	}
}
