package domain

import (
	"time"

	"github.com/google/uuid"
)

type CourseProgress struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course" json:"userId"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course" json:"courseId"`
	Completed bool      `gorm:"not null;default:false" json:"completed"`
	// Version is bumped on every write to Completed; writers compare-and-swap on it.
	Version int64 `gorm:"not null;default:0" json:"-"`

	Lectures []LectureProgress `gorm:"foreignKey:ProgressID;constraint:OnDelete:CASCADE;" json:"lectureProgress"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LectureProgress is one row per (progress, lecture) so concurrent views of
// sibling lectures never write the same row.
type LectureProgress struct {
	ProgressID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	LectureID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"lectureId"`
	Viewed     bool      `gorm:"not null;default:false" json:"viewed"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ProgressReport struct {
	CourseDetails *Course           `json:"courseDetails"`
	Progress      []LectureProgress `json:"progress"`
	Completed     bool              `json:"completed"`
}

// CompletedFor reports whether viewed covers every lecture the course has now.
// A course without lectures is never complete.
func CompletedFor(viewed int, lectureCount int) bool {
	return lectureCount > 0 && viewed == lectureCount
}
