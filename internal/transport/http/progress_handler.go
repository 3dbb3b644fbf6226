package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"coursemarket/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressService interface {
	GetProgress(ctx context.Context, p domain.Principal, courseID uuid.UUID) (*domain.ProgressReport, error)
	RecordLectureView(ctx context.Context, p domain.Principal, courseID, lectureID uuid.UUID) (*domain.ProgressReport, error)
	MarkCompleted(ctx context.Context, p domain.Principal, courseID uuid.UUID) error
	MarkIncomplete(ctx context.Context, p domain.Principal, courseID uuid.UUID) error
}

type ProgressHandler struct {
	progress ProgressService
	logger   *slog.Logger
}

func NewProgressHandler(ps ProgressService, logger *slog.Logger) *ProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHandler{progress: ps, logger: logger}
}

// GET /api/v1/progress/:courseId
func (h *ProgressHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}

	report, err := h.progress.GetProgress(c.Request.Context(), p, courseID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load course progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// POST /api/v1/progress/:courseId/lecture/:lectureId/view
func (h *ProgressHandler) ViewLecture(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	lectureID, ok := uuidParam(c, "lectureId")
	if !ok {
		return
	}

	report, err := h.progress.RecordLectureView(c.Request.Context(), p, courseID, lectureID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update lecture progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Lecture progress updated successfully",
		"data":    report,
	})
}

// POST /api/v1/progress/:courseId/complete
func (h *ProgressHandler) MarkCompleted(c *gin.Context) {
	h.setCompletion(c, true)
}

// POST /api/v1/progress/:courseId/incomplete
func (h *ProgressHandler) MarkIncomplete(c *gin.Context) {
	h.setCompletion(c, false)
}

func (h *ProgressHandler) setCompletion(c *gin.Context, completed bool) {
	p, ok := principal(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}

	var err error
	msg := "Course marked as completed."
	if completed {
		err = h.progress.MarkCompleted(c.Request.Context(), p, courseID)
	} else {
		msg = "Course marked as incomplete."
		err = h.progress.MarkIncomplete(c.Request.Context(), p, courseID)
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to update course progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}
