package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const courseDetailPrefix = "course:detail:"

// CourseRepository reads the catalog. Detail reads go through redis when a
// client is configured; rdb may be nil.
type CourseRepository struct {
	db  *gorm.DB
	rdb *redis.Client
	ttl time.Duration
}

func NewCourseRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *CourseRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CourseRepository{db: db, rdb: rdb, ttl: ttl}
}

// GetCourse always hits the database.
func (r *CourseRepository) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	err := r.db.WithContext(ctx).
		Preload("Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, created_at asc")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) GetCourseDetail(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	key := courseDetailPrefix + id.String()

	if r.rdb != nil {
		val, err := r.rdb.Get(ctx, key).Result()
		if err == nil {
			var c domain.Course
			if json.Unmarshal([]byte(val), &c) == nil {
				return &c, nil
			}
		}
	}

	course, err := r.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.rdb != nil {
		if data, err := json.Marshal(course); err == nil {
			r.rdb.Set(ctx, key, data, r.ttl)
		}
	}
	return course, nil
}

func (r *CourseRepository) InvalidateCourseDetail(ctx context.Context, id uuid.UUID) {
	if r.rdb == nil {
		return
	}
	r.rdb.Del(ctx, courseDetailPrefix+id.String())
}
