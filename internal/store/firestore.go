package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/finboard/backend/internal/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	itemsCollection     = "financial_items"
	alertsCollection    = "alerts"
	documentsCollection = "documents"
	usersCollection     = "users"
)

// FirestoreStore implements the Store interface using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// Financial item operations

func (s *FirestoreStore) CreateItem(ctx context.Context, item *model.FinancialItem) error {
	_, err := s.client.Collection(itemsCollection).Doc(item.ID).Set(ctx, item)
	return err
}

func (s *FirestoreStore) GetItem(ctx context.Context, itemID string) (*model.FinancialItem, error) {
	doc, err := s.client.Collection(itemsCollection).Doc(itemID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	var item model.FinancialItem
	if err := doc.DataTo(&item); err != nil {
		return nil, fmt.Errorf("failed to parse item: %w", err)
	}
	return &item, nil
}

func (s *FirestoreStore) UpdateItem(ctx context.Context, item *model.FinancialItem) error {
	_, err := s.client.Collection(itemsCollection).Doc(item.ID).Set(ctx, item)
	return err
}

func (s *FirestoreStore) DeleteItem(ctx context.Context, itemID string) error {
	_, err := s.client.Collection(itemsCollection).Doc(itemID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListItems(ctx context.Context, userID string) ([]*model.FinancialItem, error) {
	iter := s.client.Collection(itemsCollection).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var items []*model.FinancialItem
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		var item model.FinancialItem
		if err := doc.DataTo(&item); err != nil {
			return nil, fmt.Errorf("failed to parse item: %w", err)
		}
		items = append(items, &item)
	}
	return items, nil
}

// Alert operations

func (s *FirestoreStore) CreateAlert(ctx context.Context, alert *model.Alert) error {
	_, err := s.client.Collection(alertsCollection).Doc(alert.ID).Set(ctx, alert)
	return err
}

func (s *FirestoreStore) ListAlerts(ctx context.Context, userID string, unreadOnly bool) ([]*model.Alert, error) {
	query := s.client.Collection(alertsCollection).Where("userId", "==", userID)
	if unreadOnly {
		query = query.Where("read", "==", false)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var alerts []*model.Alert
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list alerts: %w", err)
		}
		var alert model.Alert
		if err := doc.DataTo(&alert); err != nil {
			return nil, fmt.Errorf("failed to parse alert: %w", err)
		}
		alerts = append(alerts, &alert)
	}
	return alerts, nil
}

// MarkAlertRead flips the read flag. Writing true over true is harmless, so
// repeated acknowledgments stay idempotent.
func (s *FirestoreStore) MarkAlertRead(ctx context.Context, alertID string) error {
	_, err := s.client.Collection(alertsCollection).Doc(alertID).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) GetUnreadAlertCount(ctx context.Context, userID string) (int, error) {
	iter := s.client.Collection(alertsCollection).
		Where("userId", "==", userID).
		Where("read", "==", false).
		Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count unread alerts: %w", err)
		}
		count++
	}
	return count, nil
}

func (s *FirestoreStore) HasAlertForReference(ctx context.Context, userID, referenceID string) (bool, error) {
	iter := s.client.Collection(alertsCollection).
		Where("userId", "==", userID).
		Where("referenceId", "==", referenceID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check alert reference: %w", err)
	}
	return true, nil
}

// Document metadata operations

func (s *FirestoreStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	_, err := s.client.Collection(documentsCollection).Doc(doc.ID).Set(ctx, doc)
	return err
}

func (s *FirestoreStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	snap, err := s.client.Collection(documentsCollection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	var doc model.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

func (s *FirestoreStore) DeleteDocument(ctx context.Context, docID string) error {
	_, err := s.client.Collection(documentsCollection).Doc(docID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListDocuments(ctx context.Context, userID string) ([]*model.Document, error) {
	iter := s.client.Collection(documentsCollection).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var docs []*model.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		var doc model.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// User operations

func (s *FirestoreStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	doc, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

func (s *FirestoreStore) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	iter := s.client.Collection(usersCollection).
		Where("phone", "==", phone).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by phone: %w", err)
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, user *model.User) error {
	_, err := s.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	return err
}
