package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"

	"draw-backend/internal/models"
	"draw-backend/internal/supabase"
)

const statusNotFound = "not_found"

type SecondaryStatusReader interface {
	Status(ctx context.Context, promptID, submissionID string) (*models.SecondaryReview, error)
}

type SecondaryHandler struct {
	reviews SecondaryStatusReader
}

func NewSecondaryHandler(reviews SecondaryStatusReader) *SecondaryHandler {
	return &SecondaryHandler{reviews: reviews}
}

// GetSecondary godoc
// @Summary     Secondary review status
// @Description Polls the longer review of a ranked submission. 202 while pending, 200 with the
// @Description comment once done, 404 when there is nothing to show.
// @Tags        draw
// @Produce     json
// @Param       promptId     query string true "Prompt id"
// @Param       submissionId query string true "Submission id"
// @Success     200 {object} models.SecondaryReviewResult
// @Success     202 {object} models.SecondaryStatusResponse
// @Failure     400 {object} models.SecondaryStatusResponse
// @Failure     404 {object} models.SecondaryStatusResponse
// @Failure     500 {object} models.SecondaryStatusResponse
// @Router      /api/draw/secondary [get]
func (h *SecondaryHandler) GetSecondary(c *gin.Context) {
	if h.reviews == nil {
		c.JSON(http.StatusInternalServerError, models.SecondaryStatusResponse{Status: statusNotFound, Error: "database not available"})
		return
	}

	var q models.SecondaryStatusQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.PromptID == "" || q.SubmissionID == "" {
		c.JSON(http.StatusBadRequest, models.SecondaryStatusResponse{Status: statusNotFound})
		return
	}

	review, err := h.reviews.Status(c.Request.Context(), q.PromptID, q.SubmissionID)
	if errors.Is(err, supabase.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.SecondaryStatusResponse{Status: statusNotFound})
		return
	}
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("secondary status failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.SecondaryStatusResponse{Status: statusNotFound, Error: err.Error()})
		return
	}

	switch {
	case review.Status == models.SecondaryStatusPending:
		c.JSON(http.StatusAccepted, models.SecondaryStatusResponse{Status: string(models.SecondaryStatusPending)})
	case review.Status == models.SecondaryStatusDone && review.EnrichedComment != nil && *review.EnrichedComment != "":
		c.JSON(http.StatusOK, models.SecondaryReviewResult{
			SubmissionID:    review.SubmissionID,
			EnrichedComment: *review.EnrichedComment,
		})
	default:
		c.JSON(http.StatusNotFound, models.SecondaryStatusResponse{Status: statusNotFound})
	}
}
