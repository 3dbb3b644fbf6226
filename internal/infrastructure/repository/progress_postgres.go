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

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Ensure returns the record for (userID, courseID), creating it if absent.
// Racing creators end up with the same row.
func (r *ProgressRepository) Ensure(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	db := r.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Omit("Lectures").Create(&domain.CourseProgress{ID: uuid.New(), UserID: userID, CourseID: courseID}).Error
	if err != nil {
		return nil, err
	}

	var progress domain.CourseProgress
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) Find(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	var progress domain.CourseProgress
	err := r.db.WithContext(ctx).
		Preload("Lectures").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CourseProgress, error) {
	var progress domain.CourseProgress
	err := r.db.WithContext(ctx).Preload("Lectures").First(&progress, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// MarkViewed upserts a single lecture row; sibling lectures are never touched.
func (r *ProgressRepository) MarkViewed(ctx context.Context, progressID, lectureID uuid.UUID) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "progress_id"}, {Name: "lecture_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"viewed":     true,
			"updated_at": time.Now(),
		}),
	}).Create(&domain.LectureProgress{ProgressID: progressID, LectureID: lectureID, Viewed: true}).Error
}

func (r *ProgressRepository) CountViewed(ctx context.Context, progressID uuid.UUID, lectureIDs []uuid.UUID) (int, error) {
	if len(lectureIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.LectureProgress{}).
		Where("progress_id = ? AND viewed = ? AND lecture_id IN ?", progressID, true, lectureIDs).
		Count(&count).Error
	return int(count), err
}

func (r *ProgressRepository) SetCompleted(ctx context.Context, progressID uuid.UUID, version int64, completed bool) error {
	res := r.db.WithContext(ctx).Model(&domain.CourseProgress{}).
		Where("id = ? AND version = ?", progressID, version).
		Updates(map[string]interface{}{
			"completed": completed,
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// SetAll flips every existing lecture row and the completed flag together.
// It never creates a record.
func (r *ProgressRepository) SetAll(ctx context.Context, userID, courseID uuid.UUID, viewed bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var progress domain.CourseProgress
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND course_id = ?", userID, courseID).
			First(&progress).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProgressNotFound
			}
			return err
		}

		if err := tx.Model(&domain.LectureProgress{}).
			Where("progress_id = ?", progress.ID).
			Updates(map[string]interface{}{"viewed": viewed, "updated_at": time.Now()}).Error; err != nil {
			return err
		}

		return tx.Model(&domain.CourseProgress{}).
			Where("id = ?", progress.ID).
			Updates(map[string]interface{}{
				"completed": viewed,
				"version":   gorm.Expr("version + 1"),
			}).Error
	})
}
