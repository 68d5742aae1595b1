package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/finboard/backend/internal/auth"
	"github.com/finboard/backend/internal/reminder"
	"github.com/finboard/backend/internal/store"
)

// schedulerSecretHeader authenticates the scheduled reminder run in place of
// a user token.
const schedulerSecretHeader = "X-Scheduler-Secret"

type runRemindersRequest struct {
	UserID        string `json:"userId"`
	LookaheadDays int    `json:"lookaheadDays"`
}

// handleRunReminders scans a user's items and sends renewal reminders over
// WhatsApp. Callable by the user for their own account, or by the scheduler
// with the shared secret for any account.
func (s *FinanceService) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	var req runRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fromScheduler := s.schedulerSecret != "" && r.Header.Get(schedulerSecretHeader) == s.schedulerSecret
	if !fromScheduler {
		claims, err := auth.RequireAuth(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if req.UserID == "" {
			req.UserID = claims.UID
		}
		if req.UserID != claims.UID {
			writeError(w, http.StatusForbidden, "cannot run reminders for another user")
			return
		}
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	user, err := s.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load user: %v", err))
		return
	}

	chatID := user.WhatsAppChatID
	if chatID == "" && user.Phone != "" {
		chatID = user.Phone + "@c.us"
	}
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "user has no linked WhatsApp destination")
		return
	}
	if s.messenger == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging is not configured")
		return
	}

	items, err := s.store.ListItems(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list items: %v", err))
		return
	}

	now := s.now()
	due := reminder.Scan(items, now, req.LookaheadDays)
	res := reminder.SendAll(r.Context(), s.messenger, chatID, due, now)

	writeJSON(w, http.StatusOK, map[string]any{
		"due":    len(due),
		"sent":   res.Sent,
		"failed": res.Failed,
	})
}
