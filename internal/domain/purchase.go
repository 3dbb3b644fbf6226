package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
)

// pending is the only state with outgoing edges; completed and failed are terminal.
var purchaseTransitions = map[PurchaseStatus]map[PurchaseStatus]struct{}{
	PurchasePending:   {PurchaseCompleted: {}, PurchaseFailed: {}},
	PurchaseCompleted: {},
	PurchaseFailed:    {},
}

func (s PurchaseStatus) CanTransition(to PurchaseStatus) bool {
	allowed, ok := purchaseTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

func (s PurchaseStatus) Terminal() bool {
	return len(purchaseTransitions[s]) == 0
}

type Purchase struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID      `gorm:"type:uuid;index:idx_purchase_user_course" json:"courseId"`
	UserID   uuid.UUID      `gorm:"type:uuid;index:idx_purchase_user_course" json:"userId"`
	Amount   int64          `gorm:"not null" json:"amount"` // minor units
	Currency string         `gorm:"size:10" json:"currency"`
	Status   PurchaseStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	// Nil until the gateway returns a session; a failed gateway call leaves it nil.
	GatewaySessionID *string `gorm:"uniqueIndex" json:"paymentId,omitempty"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CheckoutRequest struct {
	PurchaseID string
	Title      string
	Thumbnail  string
	Amount     int64
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type CheckoutResult struct {
	PurchaseID  uuid.UUID
	RedirectURL string
}

const EventCheckoutCompleted = "checkout.session.completed"

// GatewayEvent is a verified gateway notification. Session fields are only
// populated for checkout events.
type GatewayEvent struct {
	ID          string
	Type        string
	SessionID   string
	AmountTotal int64
	Metadata    map[string]string
}

type WebhookOutcome int

const (
	WebhookIgnored WebhookOutcome = iota
	WebhookApplied
	WebhookDuplicate
)

func (o WebhookOutcome) String() string {
	switch o {
	case WebhookApplied:
		return "applied"
	case WebhookDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// PurchaseReport is a completed purchase as listed for reporting.
type PurchaseReport struct {
	Purchase
	DisplayAmount string `json:"displayAmount"`
}

func NewPurchaseReport(p Purchase) PurchaseReport {
	return PurchaseReport{
		Purchase:      p,
		DisplayAmount: decimal.New(p.Amount, -2).StringFixed(2),
	}
}
