package query

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
)

// CourseProgressHandler reads stored course progress rows.
type CourseProgressHandler struct {
	repo progress.CourseProgressRepository
}

// NewCourseProgressHandler creates the handler.
func NewCourseProgressHandler(repo progress.CourseProgressRepository) *CourseProgressHandler {
	return &CourseProgressHandler{repo: repo}
}

// Get returns the progress of userID in courseID.
func (h *CourseProgressHandler) Get(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error) {
	return h.repo.Get(ctx, userID, courseID)
}

// ListByUser returns every course progress row of userID.
func (h *CourseProgressHandler) ListByUser(ctx context.Context, userID string) ([]*progress.CourseProgress, error) {
	rows, err := h.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list course progress: %w", err)
	}
	return rows, nil
}
