package service

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finboard/backend/internal/messaging"
	"github.com/finboard/backend/internal/model"
)

type sentMessage struct {
	ChatID string
	Text   string
}

// fakeMessenger records outbound messages and can be told to fail.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", assert.AnError
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return "msg-id", nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

const testChatID = "972501234567@c.us"

func seedLinkedUser(t *testing.T, svc *FinanceService) {
	t.Helper()
	require.NoError(t, svc.store.UpdateUser(context.Background(), &model.User{
		ID:    testUserID,
		Phone: "972501234567",
	}))
}

func postWebhook(t *testing.T, handler http.Handler, msg messaging.WebhookMessage) int {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/webhooks/whatsapp", msg)
	return rec.Code
}

func TestWebhookIgnoresNonIncoming(t *testing.T) {
	svc, _, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "outgoing",
		ChatID:      testChatID,
		TextMessage: "הוסף ביטוח רכב",
	})
	assert.Equal(t, http.StatusOK, code)

	code = postWebhook(t, handler, messaging.WebhookMessage{
		Type:   "incoming",
		ChatID: testChatID,
	})
	assert.Equal(t, http.StatusOK, code)

	assert.Empty(t, messenger.messages())
}

func TestWebhookNoLinkedAccount(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "הוסף ביטוח רכב הראל 5000",
	})
	assert.Equal(t, http.StatusOK, code)

	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, testChatID, msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "לא נמצא חשבון")

	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// fakeDirectory resolves phones registered only with the identity provider.
type fakeDirectory struct {
	byPhone map[string]string
}

func (f *fakeDirectory) LookupUserByPhone(ctx context.Context, phone string) (string, error) {
	uid, ok := f.byPhone[phone]
	if !ok {
		return "", assert.AnError
	}
	return uid, nil
}

func TestWebhookDirectoryFallback(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)
	svc.SetUserDirectory(&fakeDirectory{byPhone: map[string]string{"972501234567": testUserID}})

	// The user record exists but carries no phone, so only the directory can
	// link the message.
	require.NoError(t, ms.UpdateUser(context.Background(), &model.User{ID: testUserID}))

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "הוסף ביטוח רכב הראל 5000",
	})
	assert.Equal(t, http.StatusOK, code)

	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWebhookAddCreatesItem(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)
	seedLinkedUser(t, svc)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "הוסף ביטוח רכב הראל 5000",
	})
	assert.Equal(t, http.StatusOK, code)

	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ביטוח רכב", items[0].Name)
	assert.Equal(t, "הראל", items[0].Institution)
	assert.Equal(t, model.CategoryInsurance, items[0].Category)
	assert.Equal(t, 5000.0, items[0].Value)
	assert.Equal(t, "כללי", items[0].ProductType)
	assert.Equal(t, model.StatusActive, items[0].Status)

	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "✅ נוסף בהצלחה")
	assert.Contains(t, msgs[0].Text, "📁 insurance")
	assert.Contains(t, msgs[0].Text, "₪5,000")
}

// A case-variant English keyword classifies as add but leaves no residual
// text to name the item; the placeholder name applies at creation time.
func TestWebhookAddCaseVariantKeyword(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	svc.SetMessenger(&fakeMessenger{})
	seedLinkedUser(t, svc)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "Add ביטוח 5000",
	})
	assert.Equal(t, http.StatusOK, code)

	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "פריט חדש", items[0].Name)
	assert.Equal(t, model.CategoryInsurance, items[0].Category)
	assert.Equal(t, 5000.0, items[0].Value)
}

func TestWebhookAddDefaultsInstitution(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)
	seedLinkedUser(t, svc)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "הוסף ביטוח חיים",
	})
	assert.Equal(t, http.StatusOK, code)

	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "לא צוין", items[0].Institution)
	assert.Equal(t, 0.0, items[0].Value)

	// No parsed value, no value line in the confirmation.
	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.NotContains(t, msgs[0].Text, "₪")
}

func TestWebhookAddMissingCategory(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)
	seedLinkedUser(t, svc)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "הוסף משהו 100",
	})
	assert.Equal(t, http.StatusOK, code)

	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Empty(t, items)

	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "לא הצלחתי לזהות קטגוריה")
}

func TestWebhookQueryAnswersOverWhatsApp(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)
	seedLinkedUser(t, svc)

	require.NoError(t, ms.CreateItem(context.Background(), &model.FinancialItem{
		ID: "a", UserID: testUserID, Name: "ביטוח בריאות", Category: model.CategoryInsurance, Value: 4500, Status: model.StatusActive,
	}))

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "כמה אני משלם על ביטוח?",
	})
	assert.Equal(t, http.StatusOK, code)

	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "₪4,500")
}

func TestWebhookUnknownMessageGetsHelp(t *testing.T) {
	svc, _, handler := newTestEnv(t)
	messenger := &fakeMessenger{}
	svc.SetMessenger(messenger)
	seedLinkedUser(t, svc)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "שלום",
	})
	assert.Equal(t, http.StatusOK, code)

	msgs := messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "👋")
}

func TestWebhookSendFailureStillReturns200(t *testing.T) {
	svc, ms, handler := newTestEnv(t)
	svc.SetMessenger(&fakeMessenger{fail: true})
	seedLinkedUser(t, svc)

	code := postWebhook(t, handler, messaging.WebhookMessage{
		Type:        "incoming",
		ChatID:      testChatID,
		TextMessage: "הוסף ביטוח רכב הראל 5000",
	})
	assert.Equal(t, http.StatusOK, code)

	// The item still lands even though the confirmation could not be sent.
	items, err := ms.ListItems(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
