package handlers

import (
	"context"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"

	"draw-backend/internal/models"
)

type LeaderboardReader interface {
	Get(ctx context.Context, q models.LeaderboardQuery) (*models.LeaderboardResponse, error)
}

type LeaderboardHandler struct {
	leaderboard LeaderboardReader
}

func NewLeaderboardHandler(leaderboard LeaderboardReader) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GetLeaderboard godoc
// @Summary     Prompt leaderboard
// @Description Returns up to limit (default 20, max 50) entries with freshly signed image URLs.
// @Tags        draw
// @Produce     json
// @Param       promptId query string false "Prompt id (prompt-YYYY-MM)"
// @Param       month    query string false "Month as YYYY-MM, used when promptId is absent"
// @Param       limit    query int    false "Number of entries"
// @Success     200 {object} models.LeaderboardResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/draw/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	if h.leaderboard == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	var q models.LeaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid query", Message: err.Error()})
		return
	}

	resp, err := h.leaderboard.Get(c.Request.Context(), q)
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("leaderboard failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
