// Package service exposes the HTTP surface: item/alert/document CRUD, the
// chat assistant, search, the reminder runner and the WhatsApp webhook.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/finboard/backend/internal/assistant"
	"github.com/finboard/backend/internal/auth"
	"github.com/finboard/backend/internal/model"
	"github.com/finboard/backend/internal/search"
	"github.com/finboard/backend/internal/store"
)

const dateLayout = "2006-01-02"

// Messenger is the outbound messaging collaborator.
type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string) (string, error)
}

// UserDirectory resolves a phone number to a user ID when the store has no
// matching record. Satisfied by auth.FirebaseAuth.
type UserDirectory interface {
	LookupUserByPhone(ctx context.Context, phone string) (string, error)
}

// FinanceService holds the collaborators behind the HTTP handlers.
type FinanceService struct {
	store           store.Store
	responder       *assistant.Responder
	trigger         *AlertTrigger
	storageBucket   *gcsstorage.BucketHandle
	bucketName      string
	searchClient    *search.AlgoliaClient
	messenger       Messenger
	directory       UserDirectory
	schedulerSecret string
	now             func() time.Time
}

func NewFinanceService(s store.Store, responder *assistant.Responder) *FinanceService {
	return &FinanceService{
		store:     s,
		responder: responder,
		trigger:   NewAlertTrigger(s),
		now:       time.Now,
	}
}

// SetStorageClient sets the GCS bucket for document file operations.
func (s *FinanceService) SetStorageClient(bucket *gcsstorage.BucketHandle, bucketName string) {
	s.storageBucket = bucket
	s.bucketName = bucketName
}

// SetSearchClient sets the Algolia client. A nil client leaves the
// store-scan fallback in place.
func (s *FinanceService) SetSearchClient(c *search.AlgoliaClient) {
	s.searchClient = c
}

// SetMessenger sets the outbound WhatsApp collaborator.
func (s *FinanceService) SetMessenger(m Messenger) {
	s.messenger = m
}

// SetUserDirectory sets the phone-lookup fallback used when an inbound
// message's number has no stored user record.
func (s *FinanceService) SetUserDirectory(d UserDirectory) {
	s.directory = d
}

// SetSchedulerSecret sets the shared secret accepted on the reminder
// endpoint in place of user auth.
func (s *FinanceService) SetSchedulerSecret(secret string) {
	s.schedulerSecret = secret
}

// RegisterRoutes attaches all authenticated API handlers to the mux. The
// WhatsApp webhook is registered separately because it is unauthenticated.
func (s *FinanceService) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.handleCreateItem)
	mux.HandleFunc("PUT /api/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/search", s.handleSearch)

	mux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	mux.HandleFunc("POST /api/alerts", s.handleCreateAlert)
	mux.HandleFunc("POST /api/alerts/{id}/read", s.handleMarkAlertRead)

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/documents", s.handleUploadDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/reminders/run", s.handleRunReminders)
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Financial item handlers

func (s *FinanceService) handleListItems(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	items, err := s.store.ListItems(r.Context(), claims.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list items: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createItemRequest struct {
	Name        string  `json:"name"`
	Institution string  `json:"institution"`
	ProductType string  `json:"productType"`
	Value       float64 `json:"value"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Status      string  `json:"status"`
	ExpiryDate  string  `json:"expiryDate"`
}

func (s *FinanceService) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := &model.FinancialItem{
		ID:          uuid.New().String(),
		UserID:      claims.UID,
		Name:        req.Name,
		Institution: req.Institution,
		ProductType: req.ProductType,
		Value:       req.Value,
		Category:    model.Category(req.Category),
		Subcategory: req.Subcategory,
		Status:      model.ItemStatus(req.Status),
		ExpiryDate:  req.ExpiryDate,
		LastUpdated: s.now().Format(dateLayout),
	}
	if item.Status == "" {
		item.Status = model.StatusActive
	}

	if err := validateItem(item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create item: %v", err))
		return
	}

	s.trigger.ItemExpiryUpcoming(r.Context(), item, s.now())
	s.indexItem(r.Context(), item)

	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (s *FinanceService) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	existing, err := s.store.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if existing.UserID != claims.UID {
		writeError(w, http.StatusForbidden, "cannot modify another user's item")
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Partial update: only supplied fields change. Value is always taken
	// since zero is a legal amount.
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Institution != "" {
		existing.Institution = req.Institution
	}
	if req.ProductType != "" {
		existing.ProductType = req.ProductType
	}
	if req.Category != "" {
		existing.Category = model.Category(req.Category)
	}
	if req.Subcategory != "" {
		existing.Subcategory = req.Subcategory
	}
	if req.Status != "" {
		existing.Status = model.ItemStatus(req.Status)
	}
	if req.ExpiryDate != "" {
		existing.ExpiryDate = req.ExpiryDate
	}
	existing.Value = req.Value
	existing.LastUpdated = s.now().Format(dateLayout)

	if err := validateItem(existing); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateItem(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to update item: %v", err))
		return
	}

	s.indexItem(r.Context(), existing)

	writeJSON(w, http.StatusOK, map[string]any{"item": existing})
}

func (s *FinanceService) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	itemID := r.PathValue("id")
	existing, err := s.store.GetItem(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if existing.UserID != claims.UID {
		writeError(w, http.StatusForbidden, "cannot delete another user's item")
		return
	}

	if err := s.store.DeleteItem(r.Context(), itemID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete item: %v", err))
		return
	}

	if s.searchClient != nil {
		if err := s.searchClient.RemoveItem(r.Context(), itemID); err != nil {
			log.Printf("[Algolia] Failed to remove item %s from index: %v", itemID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// validateItem enforces the item invariants: a known category and a finite,
// non-negative value.
func validateItem(item *model.FinancialItem) error {
	switch item.Category {
	case model.CategoryFinance, model.CategoryInsurance, model.CategoryInvestments, model.CategoryAssets:
	default:
		return fmt.Errorf("unknown or missing category %q", item.Category)
	}
	if math.IsNaN(item.Value) || math.IsInf(item.Value, 0) || item.Value < 0 {
		return fmt.Errorf("value must be a finite non-negative number")
	}
	if item.ExpiryDate != "" {
		if _, err := time.Parse(dateLayout, item.ExpiryDate); err != nil {
			return fmt.Errorf("expiryDate must be YYYY-MM-DD")
		}
	}
	return nil
}

// indexItem refreshes the search index, best-effort.
func (s *FinanceService) indexItem(ctx context.Context, item *model.FinancialItem) {
	if s.searchClient == nil {
		return
	}
	if err := s.searchClient.IndexItem(ctx, item); err != nil {
		log.Printf("[Algolia] Failed to index item %s: %v", item.ID, err)
	}
}

// Summary

type categorySummary struct {
	Category  model.Category `json:"category"`
	Value     float64        `json:"value"`
	ItemCount int            `json:"itemCount"`
}

// handleSummary returns the net worth with a per-category breakdown.
func (s *FinanceService) handleSummary(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	items, err := s.store.ListItems(r.Context(), claims.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list items: %v", err))
		return
	}

	var netWorth float64
	totals := map[model.Category]*categorySummary{}
	for _, item := range items {
		netWorth += item.Value
		cs, ok := totals[item.Category]
		if !ok {
			cs = &categorySummary{Category: item.Category}
			totals[item.Category] = cs
		}
		cs.Value += item.Value
		cs.ItemCount++
	}

	categories := make([]*categorySummary, 0, len(totals))
	for _, cat := range []model.Category{model.CategoryFinance, model.CategoryInsurance, model.CategoryInvestments, model.CategoryAssets} {
		if cs, ok := totals[cat]; ok {
			categories = append(categories, cs)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"netWorth":   netWorth,
		"categories": categories,
	})
}

// Search

func (s *FinanceService) handleSearch(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	query := r.URL.Query().Get("q")

	if s.searchClient != nil {
		results, err := s.searchClient.Search(r.Context(), claims.UID, query)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]any{"results": results})
			return
		}
		log.Printf("[Algolia] Search failed, falling back to store scan: %v", err)
	}

	items, err := s.store.ListItems(r.Context(), claims.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list items: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": search.ScanItems(items, query)})
}

// Alert handlers

func (s *FinanceService) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	alerts, err := s.store.ListAlerts(r.Context(), claims.UID, unreadOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list alerts: %v", err))
		return
	}

	unreadCount, err := s.store.GetUnreadAlertCount(r.Context(), claims.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to count alerts: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":      alerts,
		"unreadCount": unreadCount,
	})
}

type createAlertRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
}

func (s *FinanceService) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	alert := &model.Alert{
		ID:          uuid.New().String(),
		UserID:      claims.UID,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Type:        model.AlertType(req.Type),
		Category:    req.Category,
		Read:        false,
	}
	if alert.Type == "" {
		alert.Type = model.AlertInfo
	}

	if err := s.store.CreateAlert(r.Context(), alert); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create alert: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"alert": alert})
}

// handleMarkAlertRead acknowledges an alert. The operation is idempotent:
// acknowledging an already-read alert succeeds without effect.
func (s *FinanceService) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireAuth(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := s.store.MarkAlertRead(r.Context(), r.PathValue("id")); err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to mark alert read: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// Chat

type chatRequest struct {
	Query string `json:"query"`
}

func (s *FinanceService) handleChat(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.loadSnapshot(r.Context(), claims.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load data: %v", err))
		return
	}

	answer := s.responder.Respond(r.Context(), req.Query, snap)
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

// loadSnapshot assembles the read-only data view the responder works from.
func (s *FinanceService) loadSnapshot(ctx context.Context, userID string) (assistant.Snapshot, error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return assistant.Snapshot{}, fmt.Errorf("list items: %w", err)
	}
	alerts, err := s.store.ListAlerts(ctx, userID, false)
	if err != nil {
		return assistant.Snapshot{}, fmt.Errorf("list alerts: %w", err)
	}
	docs, err := s.store.ListDocuments(ctx, userID)
	if err != nil {
		return assistant.Snapshot{}, fmt.Errorf("list documents: %w", err)
	}
	return assistant.Snapshot{Items: items, Alerts: alerts, Documents: docs}, nil
}
