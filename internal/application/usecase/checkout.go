package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
)

type CheckoutConfig struct {
	FrontendURL string
	Currency    string
	Timeout     time.Duration
}

type CheckoutUseCase struct {
	courses   CourseCatalog
	purchases PurchaseStore
	gateway   PaymentGateway
	cfg       CheckoutConfig
	logger    *slog.Logger
}

func NewCheckoutUseCase(cc CourseCatalog, ps PurchaseStore, gw PaymentGateway, cfg CheckoutConfig, logger *slog.Logger) *CheckoutUseCase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutUseCase{courses: cc, purchases: ps, gateway: gw, cfg: cfg, logger: logger}
}

// InitiateCheckout records a pending purchase at the course's current price and
// opens a hosted checkout session for it. Enrolment happens only when the
// gateway later confirms payment.
func (uc *CheckoutUseCase) InitiateCheckout(ctx context.Context, p domain.Principal, courseID uuid.UUID) (*domain.CheckoutResult, error) {
	logger := uc.logger.With("op", "InitiateCheckout", "user_id", p.UserID, "course_id", courseID)

	course, err := uc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	purchase := &domain.Purchase{
		ID:       uuid.New(),
		CourseID: course.ID,
		UserID:   p.UserID,
		Amount:   course.Price,
		Currency: uc.cfg.Currency,
		Status:   domain.PurchasePending,
	}
	if err := uc.purchases.Create(ctx, purchase); err != nil {
		return nil, domain.Internal("failed to record purchase", err)
	}

	gctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	session, err := uc.gateway.CreateCheckoutSession(gctx, domain.CheckoutRequest{
		PurchaseID: purchase.ID.String(),
		Title:      course.Title,
		Thumbnail:  course.Thumbnail,
		Amount:     purchase.Amount,
		SuccessURL: fmt.Sprintf("%s/course-progress/%s", uc.cfg.FrontendURL, course.ID),
		CancelURL:  fmt.Sprintf("%s/course-detail/%s", uc.cfg.FrontendURL, course.ID),
		Metadata: map[string]string{
			"courseId":   course.ID.String(),
			"userId":     p.UserID.String(),
			"purchaseId": purchase.ID.String(),
		},
	})
	if err != nil {
		// The pending row stays; without a session id no webhook can ever complete it.
		logger.Warn("checkout session failed", "purchase_id", purchase.ID, "timeout", errors.Is(err, context.DeadlineExceeded), "err", err)
		return nil, domain.Gateway("Payment provider is unavailable", err)
	}

	if err := uc.purchases.AttachSession(ctx, purchase.ID, session.ID); err != nil {
		return nil, domain.Internal("failed to record checkout session", err)
	}

	logger.Info("checkout session created", "purchase_id", purchase.ID, "session_id", session.ID, "amount", purchase.Amount)
	return &domain.CheckoutResult{PurchaseID: purchase.ID, RedirectURL: session.URL}, nil
}
