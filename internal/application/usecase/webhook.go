package usecase

import (
	"context"
	"errors"
	"log/slog"

	"coursemarket/internal/domain"
)

type WebhookUseCase struct {
	courses   CourseCatalog
	purchases PurchaseStore
	gateway   PaymentGateway
	logger    *slog.Logger
}

func NewWebhookUseCase(cc CourseCatalog, ps PurchaseStore, gw PaymentGateway, logger *slog.Logger) *WebhookUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookUseCase{courses: cc, purchases: ps, gateway: gw, logger: logger}
}

// HandleGatewayEvent reconciles one gateway delivery. It is safe to call any
// number of times with the same payload.
func (uc *WebhookUseCase) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) (domain.WebhookOutcome, error) {
	logger := uc.logger.With("op", "HandleGatewayEvent")

	event, err := uc.gateway.ParseEvent(payload, signature)
	if err != nil {
		logger.Warn("rejected webhook", "err", err)
		if errors.Is(err, domain.ErrInvalidSignature) {
			return domain.WebhookIgnored, err
		}
		return domain.WebhookIgnored, domain.Validation("Malformed webhook payload")
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type)
	if event.Type != domain.EventCheckoutCompleted {
		logger.Debug("ignoring event type")
		return domain.WebhookIgnored, nil
	}
	if event.SessionID == "" {
		logger.Warn("checkout event without session id")
		return domain.WebhookIgnored, domain.Validation("Missing checkout session id")
	}

	logger = logger.With("session_id", event.SessionID)
	purchase, outcome, err := uc.purchases.CompleteAndGrant(ctx, event.SessionID, event.AmountTotal)
	if err != nil {
		if errors.Is(err, domain.ErrPurchaseNotFound) {
			logger.Warn("no purchase for checkout session", "metadata", event.Metadata)
			return domain.WebhookIgnored, err
		}
		logger.Error("reconciliation failed", "err", err)
		return domain.WebhookIgnored, domain.Internal("Webhook processing failed", err)
	}

	switch outcome {
	case domain.WebhookApplied:
		uc.courses.InvalidateCourseDetail(ctx, purchase.CourseID)
		logger.Info("purchase completed",
			"purchase_id", purchase.ID,
			"user_id", purchase.UserID,
			"course_id", purchase.CourseID,
			"amount", purchase.Amount,
		)
	case domain.WebhookDuplicate:
		logger.Info("duplicate delivery", "purchase_id", purchase.ID)
	default:
		logger.Warn("checkout completed for a purchase that is not pending", "purchase_id", purchase.ID, "status", purchase.Status)
	}
	return outcome, nil
}
