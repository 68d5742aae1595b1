// Package store persists financial items, alerts, documents and user
// records. Two implementations exist: Firestore for production and an
// in-memory store for local development and tests.
package store

import (
	"context"
	"errors"

	"github.com/finboard/backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations used by the service.
type Store interface {
	// Financial item operations
	CreateItem(ctx context.Context, item *model.FinancialItem) error
	GetItem(ctx context.Context, itemID string) (*model.FinancialItem, error)
	UpdateItem(ctx context.Context, item *model.FinancialItem) error
	DeleteItem(ctx context.Context, itemID string) error
	ListItems(ctx context.Context, userID string) ([]*model.FinancialItem, error)

	// Alert operations
	CreateAlert(ctx context.Context, alert *model.Alert) error
	ListAlerts(ctx context.Context, userID string, unreadOnly bool) ([]*model.Alert, error)
	MarkAlertRead(ctx context.Context, alertID string) error
	GetUnreadAlertCount(ctx context.Context, userID string) (int, error)
	HasAlertForReference(ctx context.Context, userID, referenceID string) (bool, error)

	// Document metadata operations
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	DeleteDocument(ctx context.Context, docID string) error
	ListDocuments(ctx context.Context, userID string) ([]*model.Document, error)

	// User operations
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}
