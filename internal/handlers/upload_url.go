package handlers

import (
	"context"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"

	"draw-backend/internal/models"
)

type UploadURLCreator interface {
	CreateUploadURL(ctx context.Context, req models.UploadURLRequest) (*models.UploadURLResponse, error)
}

type UploadHandler struct {
	uploads UploadURLCreator
}

func NewUploadHandler(uploads UploadURLCreator) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// CreateUploadURL godoc
// @Summary     Get an upload URL
// @Description Assigns a submission id for the month's prompt and returns a signed URL to PUT the PNG to.
// @Tags        draw
// @Accept      json
// @Produce     json
// @Param       request body models.UploadURLRequest false "Optional month or prompt id"
// @Success     200 {object} models.UploadURLResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/draw/upload-url [post]
func (h *UploadHandler) CreateUploadURL(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "storage not available"})
		return
	}

	var req models.UploadURLRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			// An unreadable body means "no preference".
			clog.FromContext(c.Request.Context()).Debugf("ignoring upload-url body: %v", err)
			req = models.UploadURLRequest{}
		}
	}

	resp, err := h.uploads.CreateUploadURL(c.Request.Context(), req)
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("failed to create upload url: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
