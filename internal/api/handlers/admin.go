package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/refresh"
	"github.com/sirupsen/logrus"
)

// Refresher операции загрузки, доступные администратору
type Refresher interface {
	RefreshOnce(ctx context.Context) (*refresh.Result, error)
	Backfill(ctx context.Context, from, to datekey.Key) (*refresh.BackfillResult, error)
}

// AdminHandler обработчик административных операций
type AdminHandler struct {
	refresher Refresher
	logger    *logrus.Logger
}

// NewAdminHandler создает новый обработчик администратора
func NewAdminHandler(refresher Refresher, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
		logger:    logger,
	}
}

// BackfillRequest запрос на загрузку диапазона дат
type BackfillRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// Refresh загружает последнюю опубликованную дату
// @Summary Refresh rates
// @Description Fetch the latest feed and upsert it
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} refresh.Result
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/admin/refresh [post]
func (h *AdminHandler) Refresh(c *gin.Context) {
	username, _ := middleware.GetUsername(c)

	result, err := h.refresher.RefreshOnce(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin": username,
		"date":  result.Date.String(),
	}).Info("Manual refresh completed")

	c.JSON(http.StatusOK, result)
}

// Backfill загружает диапазон дат
// @Summary Backfill rates
// @Description Fetch and upsert every date in [from, to], skipping stored dates
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body BackfillRequest true "Date range dd/mm/yyyy"
// @Success 200 {object} refresh.BackfillResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/backfill [post]
func (h *AdminHandler) Backfill(c *gin.Context) {
	var req BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid request: " + err.Error()})
		return
	}

	from, err := datekey.ParseDisplay(req.From)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := datekey.ParseDisplay(req.To)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.refresher.Backfill(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
