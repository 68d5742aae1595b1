package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finboard/backend/internal/assistant"
	"github.com/finboard/backend/internal/auth"
	"github.com/finboard/backend/internal/model"
	"github.com/finboard/backend/internal/store"
)

const testUserID = "user-1"

var testNow = time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)

// newTestEnv builds a service on a memory store with a fixed clock, behind a
// mux that injects authenticated claims unless the request opts out.
func newTestEnv(t *testing.T) (*FinanceService, *store.MemoryStore, http.Handler) {
	t.Helper()

	ms := store.NewMemoryStore()
	svc := NewFinanceService(ms, assistant.NewResponder(nil))
	svc.now = func() time.Time { return testNow }

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	mux.HandleFunc("POST /webhooks/whatsapp", svc.HandleWhatsAppWebhook)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Anonymous") == "" {
			uid := r.Header.Get("X-Test-User")
			if uid == "" {
				uid = testUserID
			}
			r = r.WithContext(auth.WithUserClaims(r.Context(), &auth.UserClaims{UID: uid}))
		}
		mux.ServeHTTP(w, r)
	})
	return svc, ms, handler
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(into))
}

func TestCreateAndListItems(t *testing.T) {
	_, _, handler := newTestEnv(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/items", createItemRequest{
		Name:        "ביטוח דירה",
		Institution: "הראל",
		Value:       3200,
		Category:    "insurance",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Item model.FinancialItem `json:"item"`
	}
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.Item.ID)
	assert.Equal(t, testUserID, created.Item.UserID)
	assert.Equal(t, model.StatusActive, created.Item.Status)
	assert.Equal(t, "2026-01-12", created.Item.LastUpdated)

	rec = doJSON(t, handler, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Items []model.FinancialItem `json:"items"`
	}
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, "ביטוח דירה", listed.Items[0].Name)
}

func TestCreateItemValidation(t *testing.T) {
	tests := []struct {
		name string
		req  createItemRequest
	}{
		{"missing category", createItemRequest{Name: "x", Value: 100}},
		{"unknown category", createItemRequest{Name: "x", Value: 100, Category: "crypto"}},
		{"negative value", createItemRequest{Name: "x", Value: -5, Category: "finance"}},
		{"bad expiry date", createItemRequest{Name: "x", Category: "finance", ExpiryDate: "26/01/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, handler := newTestEnv(t)
			rec := doJSON(t, handler, http.MethodPost, "/api/items", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateItemOwnership(t *testing.T) {
	_, ms, handler := newTestEnv(t)

	item := &model.FinancialItem{ID: "item-1", UserID: "someone-else", Name: "x", Category: model.CategoryFinance, Status: model.StatusActive}
	require.NoError(t, ms.CreateItem(context.Background(), item))

	rec := doJSON(t, handler, http.MethodPut, "/api/items/item-1", createItemRequest{Name: "taken over"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/items/item-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	_, _, handler := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("X-Anonymous", "1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSummary(t *testing.T) {
	_, ms, handler := newTestEnv(t)

	ctx := context.Background()
	for _, item := range []*model.FinancialItem{
		{ID: "a", UserID: testUserID, Category: model.CategoryFinance, Value: 50000, Status: model.StatusActive},
		{ID: "b", UserID: testUserID, Category: model.CategoryInsurance, Value: 4500, Status: model.StatusActive},
		{ID: "c", UserID: testUserID, Category: model.CategoryInsurance, Value: 6000, Status: model.StatusActive},
		{ID: "d", UserID: "other", Category: model.CategoryFinance, Value: 999999, Status: model.StatusActive},
	} {
		require.NoError(t, ms.CreateItem(ctx, item))
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		NetWorth   float64           `json:"netWorth"`
		Categories []categorySummary `json:"categories"`
	}
	decodeBody(t, rec, &resp)

	assert.Equal(t, 60500.0, resp.NetWorth)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, model.CategoryFinance, resp.Categories[0].Category)
	assert.Equal(t, 50000.0, resp.Categories[0].Value)
	assert.Equal(t, model.CategoryInsurance, resp.Categories[1].Category)
	assert.Equal(t, 10500.0, resp.Categories[1].Value)
	assert.Equal(t, 2, resp.Categories[1].ItemCount)
}

func TestMarkAlertReadIdempotent(t *testing.T) {
	_, ms, handler := newTestEnv(t)

	alert := &model.Alert{ID: "alert-1", UserID: testUserID, Title: "תזכורת"}
	require.NoError(t, ms.CreateAlert(context.Background(), alert))

	for i := 0; i < 2; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/alerts/alert-1/read", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	got, err := ms.ListAlerts(context.Background(), testUserID, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Read)

	rec := doJSON(t, handler, http.MethodPost, "/api/alerts/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAlertsUnreadFilter(t *testing.T) {
	_, ms, handler := newTestEnv(t)

	ctx := context.Background()
	require.NoError(t, ms.CreateAlert(ctx, &model.Alert{ID: "a1", UserID: testUserID, Title: "one", Read: true}))
	require.NoError(t, ms.CreateAlert(ctx, &model.Alert{ID: "a2", UserID: testUserID, Title: "two"}))

	rec := doJSON(t, handler, http.MethodGet, "/api/alerts?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Alerts      []model.Alert `json:"alerts"`
		UnreadCount int           `json:"unreadCount"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "two", resp.Alerts[0].Title)
	assert.Equal(t, 1, resp.UnreadCount)
}

func TestSearchFallsBackToStoreScan(t *testing.T) {
	_, ms, handler := newTestEnv(t)

	ctx := context.Background()
	require.NoError(t, ms.CreateItem(ctx, &model.FinancialItem{ID: "a", UserID: testUserID, Name: "ביטוח רכב", Institution: "הראל", Category: model.CategoryInsurance, Status: model.StatusActive}))
	require.NoError(t, ms.CreateItem(ctx, &model.FinancialItem{ID: "b", UserID: testUserID, Name: "חשבון עו\"ש", Institution: "לאומי", Category: model.CategoryFinance, Status: model.StatusActive}))

	rec := doJSON(t, handler, http.MethodGet, "/api/search?q="+url.QueryEscape("הראל"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []model.FinancialItem `json:"results"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ביטוח רכב", resp.Results[0].Name)
}

func TestChatAnswersFromSnapshot(t *testing.T) {
	_, ms, handler := newTestEnv(t)

	require.NoError(t, ms.CreateItem(context.Background(), &model.FinancialItem{
		ID: "a", UserID: testUserID, Name: "ביטוח בריאות", Category: model.CategoryInsurance, Value: 4500, Status: model.StatusActive,
	}))

	rec := doJSON(t, handler, http.MethodPost, "/api/chat", chatRequest{Query: "כמה אני משלם על ביטוח?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Response string `json:"response"`
	}
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Response, "₪4,500")
}
