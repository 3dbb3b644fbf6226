package usecase

import (
	"context"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
)

// CourseCatalog is the read side of the course-management collaborator.
type CourseCatalog interface {
	// GetCourse reads the course and its current lectures from the store.
	GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	// GetCourseDetail may be served from cache; use it only for display.
	GetCourseDetail(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	InvalidateCourseDetail(ctx context.Context, id uuid.UUID)
}

type PurchaseStore interface {
	Create(ctx context.Context, p *domain.Purchase) error
	AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error
	// CompleteAndGrant moves the pending purchase for sessionID to completed,
	// records amount, unlocks previews and enrols the buyer in one unit of
	// work. When the purchase is already completed it only refreshes amount
	// and reports WebhookDuplicate.
	CompleteAndGrant(ctx context.Context, sessionID string, amount int64) (*domain.Purchase, domain.WebhookOutcome, error)
	HasCompleted(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	ListCompleted(ctx context.Context) ([]domain.Purchase, error)
}

type ProgressStore interface {
	// Ensure returns the progress record for (user, course), creating it if absent.
	Ensure(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
	Find(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CourseProgress, error)
	MarkViewed(ctx context.Context, progressID, lectureID uuid.UUID) error
	CountViewed(ctx context.Context, progressID uuid.UUID, lectureIDs []uuid.UUID) (int, error)
	// SetCompleted writes completed if the stored version still equals
	// version, otherwise returns domain.ErrVersionConflict.
	SetCompleted(ctx context.Context, progressID uuid.UUID, version int64, completed bool) error
	// SetAll flips every existing lecture entry and the completed flag.
	// Returns domain.ErrProgressNotFound when no record exists.
	SetAll(ctx context.Context, userID, courseID uuid.UUID, viewed bool) error
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	// ParseEvent verifies signature over the raw payload and decodes it.
	ParseEvent(payload []byte, signature string) (*domain.GatewayEvent, error)
}
