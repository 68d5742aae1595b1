// Package model holds the domain types shared across the store, the HTTP
// surface and the message-intent engine.
package model

// Category labels a financial item. The five values mirror the dashboard
// sections; "documents" only appears on Document records.
type Category string

const (
	CategoryFinance     Category = "finance"
	CategoryInsurance   Category = "insurance"
	CategoryInvestments Category = "investments"
	CategoryAssets      Category = "assets"
	CategoryDocuments   Category = "documents"
)

// ItemStatus is the lifecycle state of a FinancialItem.
type ItemStatus string

const (
	StatusActive  ItemStatus = "active"
	StatusFrozen  ItemStatus = "frozen"
	StatusExpired ItemStatus = "expired"
)

// AlertType is the severity of an alert.
type AlertType string

const (
	AlertUrgent  AlertType = "urgent"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
)

// FinancialItem is a single tracked record: a bank account, an insurance
// policy, an investment or a real-estate asset. Value is always a finite,
// non-negative amount in shekels.
type FinancialItem struct {
	ID          string     `json:"id" firestore:"id"`
	UserID      string     `json:"userId" firestore:"userId"`
	Name        string     `json:"name" firestore:"name"`
	Institution string     `json:"institution" firestore:"institution"`
	ProductType string     `json:"productType" firestore:"productType"`
	Value       float64    `json:"value" firestore:"value"`
	LastUpdated string     `json:"lastUpdated" firestore:"lastUpdated"` // YYYY-MM-DD
	ExpiryDate  string     `json:"expiryDate,omitempty" firestore:"expiryDate,omitempty"`
	Status      ItemStatus `json:"status" firestore:"status"`
	Category    Category   `json:"category" firestore:"category"`
	Subcategory string     `json:"subcategory,omitempty" firestore:"subcategory,omitempty"`
}

// Alert is a user-facing notification. Read transitions false -> true exactly
// once via explicit acknowledgment and never reverts.
type Alert struct {
	ID          string    `json:"id" firestore:"id"`
	UserID      string    `json:"userId" firestore:"userId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Date        string    `json:"date" firestore:"date"`
	Type        AlertType `json:"type" firestore:"type"`
	Category    string    `json:"category" firestore:"category"`
	Read        bool      `json:"read" firestore:"read"`
	ReferenceID string    `json:"referenceId,omitempty" firestore:"referenceId,omitempty"`
}

// Document is uploaded-file metadata. The record exists only if the
// underlying file bytes were durably stored first.
type Document struct {
	ID          string   `json:"id" firestore:"id"`
	UserID      string   `json:"userId" firestore:"userId"`
	Name        string   `json:"name" firestore:"name"`
	Type        string   `json:"type" firestore:"type"` // file extension label, e.g. "PDF"
	Category    Category `json:"category" firestore:"category"`
	UploadDate  string   `json:"uploadDate" firestore:"uploadDate"`
	Size        string   `json:"size" firestore:"size"`
	FileURL     string   `json:"fileUrl,omitempty" firestore:"fileUrl,omitempty"`
	StoragePath string   `json:"-" firestore:"storagePath,omitempty"`
	PageCount   int      `json:"pageCount,omitempty" firestore:"pageCount,omitempty"`
}

// User is an account record. Phone links the WhatsApp entry point to the
// account; WhatsAppChatID is the destination for outbound reminders.
type User struct {
	ID             string `json:"id" firestore:"id"`
	Email          string `json:"email" firestore:"email"`
	DisplayName    string `json:"displayName" firestore:"displayName"`
	Phone          string `json:"phone" firestore:"phone"`
	WhatsAppChatID string `json:"whatsappChatId,omitempty" firestore:"whatsappChatId,omitempty"`
}

// CommandAction is the classified purpose of an inbound message.
type CommandAction string

const (
	ActionAdd     CommandAction = "add"
	ActionQuery   CommandAction = "query"
	ActionUnknown CommandAction = "unknown"
)

// ParsedCommand is the ephemeral result of classifying one inbound message.
// It is consumed within a single message-handling cycle and never persisted.
type ParsedCommand struct {
	Action      CommandAction
	Category    Category
	Name        string
	Institution string
	Value       float64
	HasValue    bool
	Query       string
}

// ReminderItem is a read-only projection of a FinancialItem for the reminder
// scanner.
type ReminderItem struct {
	ID         string
	Name       string
	ExpiryDate string
	Category   Category
	UserID     string
}
