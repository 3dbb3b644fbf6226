package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
)

const maxRecomputeAttempts = 8

type ProgressUseCase struct {
	courses  CourseCatalog
	progress ProgressStore
	access   *AccessUseCase
	logger   *slog.Logger
}

func NewProgressUseCase(cc CourseCatalog, ps ProgressStore, access *AccessUseCase, logger *slog.Logger) *ProgressUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressUseCase{courses: cc, progress: ps, access: access, logger: logger}
}

// GetProgress never returns ErrProgressNotFound: a user who has not watched
// anything yet gets an empty, incomplete report.
func (uc *ProgressUseCase) GetProgress(ctx context.Context, p domain.Principal, courseID uuid.UUID) (*domain.ProgressReport, error) {
	course, err := uc.courses.GetCourseDetail(ctx, courseID)
	if err != nil {
		return nil, err
	}
	course, err = uc.access.Visible(ctx, p, course)
	if err != nil {
		return nil, err
	}

	progress, err := uc.progress.Find(ctx, p.UserID, courseID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return &domain.ProgressReport{CourseDetails: course, Progress: []domain.LectureProgress{}}, nil
	}
	if err != nil {
		return nil, err
	}

	lectures := progress.Lectures
	if lectures == nil {
		lectures = []domain.LectureProgress{}
	}
	return &domain.ProgressReport{CourseDetails: course, Progress: lectures, Completed: progress.Completed}, nil
}

// RecordLectureView marks lectureID as viewed, creating the progress record on
// first use, and recomputes completion against the course's current lectures.
func (uc *ProgressUseCase) RecordLectureView(ctx context.Context, p domain.Principal, courseID, lectureID uuid.UUID) (*domain.ProgressReport, error) {
	course, err := uc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.HasLecture(lectureID) {
		return nil, domain.ErrLectureNotFound
	}

	progress, err := uc.progress.Ensure(ctx, p.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if err := uc.progress.MarkViewed(ctx, progress.ID, lectureID); err != nil {
		return nil, err
	}

	completed, err := uc.recompute(ctx, progress.ID, course)
	if err != nil {
		return nil, err
	}

	current, err := uc.progress.FindByID(ctx, progress.ID)
	if err != nil {
		return nil, err
	}
	visible, err := uc.access.Visible(ctx, p, course)
	if err != nil {
		return nil, err
	}
	return &domain.ProgressReport{CourseDetails: visible, Progress: current.Lectures, Completed: completed}, nil
}

// recompute derives completed from the viewed rows and stores it with a
// compare-and-swap on the record version, retrying when another writer won.
func (uc *ProgressUseCase) recompute(ctx context.Context, progressID uuid.UUID, course *domain.Course) (bool, error) {
	lectureIDs := course.LectureIDs()
	for attempt := 0; attempt < maxRecomputeAttempts; attempt++ {
		current, err := uc.progress.FindByID(ctx, progressID)
		if err != nil {
			return false, err
		}

		viewed := 0
		if len(lectureIDs) > 0 {
			viewed, err = uc.progress.CountViewed(ctx, progressID, lectureIDs)
			if err != nil {
				return false, err
			}
		}

		completed := domain.CompletedFor(viewed, len(lectureIDs))
		if completed == current.Completed {
			return completed, nil
		}

		err = uc.progress.SetCompleted(ctx, progressID, current.Version, completed)
		if err == nil {
			return completed, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return false, err
		}
		uc.logger.Debug("progress version conflict, retrying", "progress_id", progressID, "attempt", attempt+1)
	}
	return false, domain.Internal("Failed to update lecture progress", fmt.Errorf("progress %s: %w after %d attempts", progressID, domain.ErrVersionConflict, maxRecomputeAttempts))
}

func (uc *ProgressUseCase) MarkCompleted(ctx context.Context, p domain.Principal, courseID uuid.UUID) error {
	return uc.progress.SetAll(ctx, p.UserID, courseID, true)
}

func (uc *ProgressUseCase) MarkIncomplete(ctx context.Context, p domain.Principal, courseID uuid.UUID) error {
	return uc.progress.SetAll(ctx, p.UserID, courseID, false)
}
