package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"draw-backend/internal/models"
	"draw-backend/internal/services"
	"draw-backend/internal/supabase"
)

const missingSubmitFields = "submissionId, imageKey required"

type Submitter interface {
	Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResult, error)
}

type SubmitHandler struct {
	submissions Submitter
}

func NewSubmitHandler(submissions Submitter) *SubmitHandler {
	return &SubmitHandler{submissions: submissions}
}

// RequireFields rejects submits without a submission id or image key before
// any later middleware runs. The body is cached for Submit.
func (h *SubmitHandler) RequireFields(c *gin.Context) {
	if _, ok := bindSubmit(c); !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: missingSubmitFields})
		return
	}
	c.Next()
}

func bindSubmit(c *gin.Context) (models.SubmitRequest, bool) {
	var req models.SubmitRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return req, false
	}
	return req, strings.TrimSpace(req.SubmissionID) != "" && strings.TrimSpace(req.ImageKey) != ""
}

// Submit godoc
// @Summary     Submit a drawing
// @Description Scores an uploaded drawing, ranks it against the prompt's top 20 and queues a
// @Description longer review for ranked entries. Near-blank drawings score 0 without a model call.
// @Tags        draw
// @Accept      json
// @Produce     json
// @Param       request body models.SubmitRequest true "Submission"
// @Success     200 {object} models.SubmitResult
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/draw/submit [post]
func (h *SubmitHandler) Submit(c *gin.Context) {
	if h.submissions == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "submission service not available"})
		return
	}

	req, ok := bindSubmit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: missingSubmitFields})
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), req)
	if errors.Is(err, services.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: missingSubmitFields})
		return
	}
	if errors.Is(err, supabase.ErrAlreadyExists) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "submission already exists"})
		return
	}
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("submit failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
