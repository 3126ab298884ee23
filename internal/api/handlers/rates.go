package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"github.com/sirupsen/logrus"
)

// DefaultHistoryDays глубина истории, если days не указан
const DefaultHistoryDays = 30

// RatesHandler обработчик запросов о курсах
type RatesHandler struct {
	querier engine.Querier
	logger  *logrus.Logger
}

// NewRatesHandler создает новый обработчик курсов
func NewRatesHandler(querier engine.Querier, logger *logrus.Logger) *RatesHandler {
	return &RatesHandler{
		querier: querier,
		logger:  logger,
	}
}

// ListCurrencies возвращает валюты последней даты
// @Summary List currencies
// @Description List currencies present on the latest stored date
// @Tags rates
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/currencies [get]
func (h *RatesHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.querier.ListCurrencies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

// GetCurrent возвращает текущий курс со статистикой
// @Summary Current rate
// @Description Rate on the latest stored date with daily change and window statistics
// @Tags rates
// @Produce json
// @Param code path string true "Currency code"
// @Success 200 {object} engine.CurrentRate
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/currencies/{code} [get]
func (h *RatesHandler) GetCurrent(c *gin.Context) {
	current, err := h.querier.GetCurrent(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, current)
}

// GetHistory возвращает историю за последние days дней
// @Summary Rate history
// @Description Observations within the last N days of the latest stored date
// @Tags rates
// @Produce json
// @Param code path string true "Currency code"
// @Param days query int false "Depth in days (alias: range)" default(30)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/currencies/{code}/history [get]
func (h *RatesHandler) GetHistory(c *gin.Context) {
	days := DefaultHistoryDays

	raw := c.Query("days")
	if raw == "" {
		raw = c.Query("range")
	}
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, h.logger, apperrors.NewFormatError("invalid days %q", raw))
			return
		}
		days = parsed
	}

	code := c.Param("code")
	points, err := h.querier.GetHistory(c.Request.Context(), code, days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   code,
		"days":   days,
		"points": points,
	})
}

// GetHistoryRange возвращает историю за диапазон дат
// @Summary Rate history for a date range
// @Description Observations between start and end inclusive, dates as dd/mm/yyyy
// @Tags rates
// @Produce json
// @Param code path string true "Currency code"
// @Param start query string true "Start date dd/mm/yyyy"
// @Param end query string true "End date dd/mm/yyyy"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/currencies/{code}/history/range [get]
func (h *RatesHandler) GetHistoryRange(c *gin.Context) {
	start, err := datekey.ParseDisplay(c.Query("start"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	end, err := datekey.ParseDisplay(c.Query("end"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	code := c.Param("code")
	points, err := h.querier.GetHistoryRange(c.Request.Context(), code, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   code,
		"start":  start,
		"end":    end,
		"points": points,
	})
}

// Convert пересчитывает сумму между валютами
// @Summary Convert amount
// @Description Convert an amount using rates of the latest stored date
// @Tags rates
// @Produce json
// @Param from query string true "Source currency (alias: from_currency)"
// @Param to query string true "Target currency (alias: to_currency)"
// @Param amount query number true "Amount"
// @Success 200 {object} engine.ConversionResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/convert [get]
func (h *RatesHandler) Convert(c *gin.Context) {
	from := queryWithAlias(c, "from", "from_currency")
	to := queryWithAlias(c, "to", "to_currency")

	rawAmount := c.Query("amount")
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		respondError(c, h.logger, apperrors.NewFormatError("invalid amount %q", rawAmount))
		return
	}

	result, err := h.querier.ConvertAmount(c.Request.Context(), from, to, amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func queryWithAlias(c *gin.Context, name, alias string) string {
	if value := c.Query(name); value != "" {
		return value
	}
	return c.Query(alias)
}
