package repository

import (
	"context"
	"errors"
	"time"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *domain.Purchase) error {
	return r.db.WithContext(ctx).Omit("Course").Create(p).Error
}

func (r *PurchaseRepository) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("id = ?", id).
		Update("gateway_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPurchaseNotFound
	}
	return nil
}

// CompleteAndGrant moves the purchase for sessionID from pending to completed
// and applies every side effect in the same transaction. Concurrent callers
// serialize on the purchase row; only the first sees the pending status.
func (r *PurchaseRepository) CompleteAndGrant(ctx context.Context, sessionID string, amount int64) (*domain.Purchase, domain.WebhookOutcome, error) {
	var purchase domain.Purchase
	outcome := domain.WebhookIgnored

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&domain.Purchase{}).
			Where("gateway_session_id = ? AND status = ?", sessionID, domain.PurchasePending).
			Updates(map[string]interface{}{
				"status":       domain.PurchaseCompleted,
				"amount":       amount,
				"completed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.Where("gateway_session_id = ?", sessionID).First(&purchase).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPurchaseNotFound
			}
			return err
		}

		if res.RowsAffected == 0 {
			if purchase.Status != domain.PurchaseCompleted {
				// Terminal but not completed: acknowledge without side effects.
				return nil
			}
			if err := tx.Model(&purchase).Update("amount", amount).Error; err != nil {
				return err
			}
			purchase.Amount = amount
			outcome = domain.WebhookDuplicate
			return nil
		}

		if err := tx.Model(&domain.Lecture{}).
			Where("course_id = ?", purchase.CourseID).
			Update("is_preview_free", true).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.UserCourse{UserID: purchase.UserID, CourseID: purchase.CourseID}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.CourseStudent{CourseID: purchase.CourseID, UserID: purchase.UserID}).Error; err != nil {
			return err
		}

		outcome = domain.WebhookApplied
		return nil
	})
	if err != nil {
		return nil, domain.WebhookIgnored, err
	}
	return &purchase, outcome, nil
}

func (r *PurchaseRepository) HasCompleted(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, domain.PurchaseCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *PurchaseRepository) ListCompleted(ctx context.Context) ([]domain.Purchase, error) {
	var purchases []domain.Purchase
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("status = ?", domain.PurchaseCompleted).
		Order("created_at desc").
		Find(&purchases).Error
	return purchases, err
}
