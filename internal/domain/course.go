package domain

import (
	"time"

	"github.com/google/uuid"
)

// Course and Lecture are owned by the course-management service. This service
// reads them and only ever writes Lecture.IsPreviewFree.
type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatorID   uuid.UUID `gorm:"type:uuid;index" json:"creator"`
	Title       string    `gorm:"index" json:"courseTitle"`
	Subtitle    string    `json:"subTitle,omitempty"`
	Category    string    `gorm:"index" json:"category,omitempty"`
	Thumbnail   string    `json:"courseThumbnail,omitempty"`
	Price       int64     `json:"coursePrice"` // minor units
	IsPublished bool      `json:"isPublished"`

	Lectures []Lecture `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;" json:"lectures"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Lecture struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CourseID      uuid.UUID `gorm:"type:uuid;index" json:"courseId"`
	Title         string    `json:"lectureTitle"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	PublicID      string    `json:"publicId,omitempty"`
	IsPreviewFree bool      `gorm:"default:false" json:"isPreviewFree"`
	Position      int       `json:"position"`

	CreatedAt time.Time `json:"createdAt"`
}

func (c *Course) LectureIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lectures))
	for _, l := range c.Lectures {
		ids = append(ids, l.ID)
	}
	return ids
}

func (c *Course) HasLecture(id uuid.UUID) bool {
	for _, l := range c.Lectures {
		if l.ID == id {
			return true
		}
	}
	return false
}

// UserCourse is the user's enrolled-course set.
type UserCourse struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// CourseStudent is the course's enrolled-student set.
type CourseStudent struct {
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}
