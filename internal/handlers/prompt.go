package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
)

type PromptHandler struct {
	prompts *drawing.PromptResolver
}

func NewPromptHandler(prompts *drawing.PromptResolver) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

// GetPrompt godoc
// @Summary     Current drawing prompt
// @Description Resolves the drawing topic for a month (YYYY-MM). Defaults to the current month in JST.
// @Tags        draw
// @Produce     json
// @Param       month query string false "Month as YYYY-MM"
// @Success     200 {object} models.PromptResponse
// @Router      /api/draw/prompt [get]
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	p := h.prompts.Resolve(c.Query("month"), c.Query("promptId"))
	c.JSON(http.StatusOK, models.PromptResponse{
		PromptID:   p.PromptID,
		DateJST:    p.DateJST,
		PromptText: p.PromptText,
		Month:      p.Month,
		Topic:      p.Topic,
	})
}
