package store

import (
	"context"
	"sort"
	"sync"

	"github.com/finboard/backend/internal/model"
	"github.com/google/uuid"
)

// MemoryStore implements the Store interface with in-memory storage.
type MemoryStore struct {
	mu sync.RWMutex

	items     map[string]*model.FinancialItem
	alerts    map[string]*model.Alert
	documents map[string]*model.Document
	users     map[string]*model.User
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[string]*model.FinancialItem),
		alerts:    make(map[string]*model.Alert),
		documents: make(map[string]*model.Document),
		users:     make(map[string]*model.User),
	}
}

// Financial item operations

func (m *MemoryStore) CreateItem(ctx context.Context, item *model.FinancialItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	m.items[item.ID] = item
	return nil
}

func (m *MemoryStore) GetItem(ctx context.Context, itemID string) (*model.FinancialItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

func (m *MemoryStore) UpdateItem(ctx context.Context, item *model.FinancialItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; !ok {
		return ErrNotFound
	}
	m.items[item.ID] = item
	return nil
}

func (m *MemoryStore) DeleteItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[itemID]; !ok {
		return ErrNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *MemoryStore) ListItems(ctx context.Context, userID string) ([]*model.FinancialItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*model.FinancialItem
	for _, item := range m.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Alert operations

func (m *MemoryStore) CreateAlert(ctx context.Context, alert *model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	m.alerts[alert.ID] = alert
	return nil
}

func (m *MemoryStore) ListAlerts(ctx context.Context, userID string, unreadOnly bool) ([]*model.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var alerts []*model.Alert
	for _, alert := range m.alerts {
		if alert.UserID != userID {
			continue
		}
		if unreadOnly && alert.Read {
			continue
		}
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

// MarkAlertRead sets Read=true. Marking an already-read alert is a no-op,
// not an error; the transition happens at most once.
func (m *MemoryStore) MarkAlertRead(ctx context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[alertID]
	if !ok {
		return ErrNotFound
	}
	alert.Read = true
	return nil
}

func (m *MemoryStore) GetUnreadAlertCount(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, alert := range m.alerts {
		if alert.UserID == userID && !alert.Read {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) HasAlertForReference(ctx context.Context, userID, referenceID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, alert := range m.alerts {
		if alert.UserID == userID && alert.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

// Document metadata operations

func (m *MemoryStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	m.documents[doc.ID] = doc
	return nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[docID]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[docID]; !ok {
		return ErrNotFound
	}
	delete(m.documents, docID)
	return nil
}

func (m *MemoryStore) ListDocuments(ctx context.Context, userID string) ([]*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*model.Document
	for _, doc := range m.documents {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// User operations

func (m *MemoryStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (m *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Phone == phone {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	m.users[user.ID] = user
	return nil
}
