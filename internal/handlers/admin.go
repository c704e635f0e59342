package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"

	"draw-backend/internal/models"
	"draw-backend/internal/services"
)

type Cleaner interface {
	Run(ctx context.Context, month string) (*models.CleanupSummary, error)
}

type Purger interface {
	Run(ctx context.Context) (*models.PurgeSummary, error)
}

type AdminHandler struct {
	cleanup Cleaner
	purge   Purger
}

func NewAdminHandler(cleanup Cleaner, purge Purger) *AdminHandler {
	return &AdminHandler{cleanup: cleanup, purge: purge}
}

// Cleanup godoc
// @Summary     Monthly image cleanup
// @Description Deletes a month's stored drawings except the top entries. Defaults to the previous JST month.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CleanupRequest false "Target month"
// @Success     200 {object} models.CleanupSummary
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/draw/admin/cleanup [post]
func (h *AdminHandler) Cleanup(c *gin.Context) {
	if h.cleanup == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "cleanup not available"})
		return
	}

	var req models.CleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
			return
		}
	}
	if req.Month == "" {
		req.Month = c.Query("month")
	}

	summary, err := h.cleanup.Run(c.Request.Context(), req.Month)
	if errors.Is(err, services.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("cleanup failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PurgeExpired godoc
// @Summary     Purge expired records
// @Description Deletes submissions past their retention window and closed rate-limit windows.
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.PurgeSummary
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/draw/admin/purge-expired [post]
func (h *AdminHandler) PurgeExpired(c *gin.Context) {
	if h.purge == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "purge not available"})
		return
	}

	summary, err := h.purge.Run(c.Request.Context())
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("purge failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
