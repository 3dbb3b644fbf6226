package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"coursemarket/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxWebhookBody = 64 << 10

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, p domain.Principal, courseID uuid.UUID) (*domain.CheckoutResult, error)
}

type WebhookService interface {
	HandleGatewayEvent(ctx context.Context, payload []byte, signature string) (domain.WebhookOutcome, error)
}

type PurchaseService interface {
	ListCompleted(ctx context.Context) ([]domain.PurchaseReport, error)
}

type AccessService interface {
	CourseDetail(ctx context.Context, p domain.Principal, courseID uuid.UUID) (*domain.CourseDetail, error)
}

type PurchaseHandler struct {
	checkout  CheckoutService
	webhook   WebhookService
	purchases PurchaseService
	access    AccessService
	logger    *slog.Logger
}

func NewPurchaseHandler(cs CheckoutService, ws WebhookService, ps PurchaseService, as AccessService, logger *slog.Logger) *PurchaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurchaseHandler{checkout: cs, webhook: ws, purchases: ps, access: as, logger: logger}
}

// POST /api/v1/checkout
func (h *PurchaseHandler) Checkout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req struct {
		CourseID string `json:"courseId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "courseId is required"})
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid courseId"})
		return
	}

	res, err := h.checkout.InitiateCheckout(c.Request.Context(), p, courseID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"redirectUrl": res.RedirectURL,
		"purchaseId":  res.PurchaseID,
	})
}

// POST /api/v1/webhook
// The body is read raw: the signature covers the exact bytes sent.
func (h *PurchaseHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("webhook body too large", "limit", tooLarge.Limit)
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid webhook body"})
		return
	}

	outcome, err := h.webhook.HandleGatewayEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, h.logger, err, "Webhook processing failed")
		return
	}

	h.logger.Debug("webhook handled", "outcome", outcome.String())
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// GET /api/v1/purchases
func (h *PurchaseHandler) ListPurchased(c *gin.Context) {
	if _, ok := principal(c); !ok {
		return
	}

	reports, err := h.purchases.ListCompleted(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to load purchased courses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "purchasedCourse": reports})
}

// GET /api/v1/courses/:courseId/detail-with-status
func (h *PurchaseHandler) CourseDetailWithStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}

	detail, err := h.access.CourseDetail(c.Request.Context(), p, courseID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load course")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"course":    detail.Course,
		"purchased": detail.Purchased,
		"isCreator": detail.IsCreator,
	})
}
