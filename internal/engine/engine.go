// Package engine отвечает на запросы о курсах: текущий курс со статистикой,
// история, история за диапазон и конвертация. Хранилище остается источником
// истины для каждого запроса; собственного кэша у движка нет.
package engine

import (
	"context"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
	"github.com/sirupsen/logrus"
)

// Окна статистики в днях
const (
	WindowExtremesDays = 7
	ShortChangeDays    = 14
	LongChangeDays     = 30
)

// RateStats оконная статистика по курсу
type RateStats struct {
	High7d    float64 `json:"high_7d"`
	Low7d     float64 `json:"low_7d"`
	Change14d float64 `json:"change_14d"`
	Change30d float64 `json:"change_30d"`
}

// CurrentRate курс валюты на последнюю дату хранилища
type CurrentRate struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Date        datekey.Key `json:"date"`
	Rate        float64     `json:"rate"`
	DailyChange float64     `json:"daily_change"`
	Stats       RateStats   `json:"stats"`
}

// HistoryPoint точка временного ряда
type HistoryPoint struct {
	Date datekey.Key `json:"date"`
	Rate float64     `json:"rate"`
}

// ConversionResult результат конвертации суммы
type ConversionResult struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount float64     `json:"amount"`
	Result float64     `json:"result"`
	Rate   float64     `json:"rate"`
	Date   datekey.Key `json:"date"`
}

// Engine фасад над резолвером, калькулятором и конвертером
type Engine struct {
	store      storages.RateStore
	resolver   *Resolver
	calculator *Calculator
	converter  *Converter
	logger     *logrus.Logger
}

// New создает движок поверх хранилища
func New(store storages.RateStore, logger *logrus.Logger) *Engine {
	resolver := NewResolver(store)
	return &Engine{
		store:      store,
		resolver:   resolver,
		calculator: NewCalculator(store, resolver),
		converter:  NewConverter(store),
		logger:     logger,
	}
}

// GetCurrent возвращает курс на LatestDate с дневным изменением и статистикой
func (e *Engine) GetCurrent(ctx context.Context, code string) (*CurrentRate, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	latest, err := e.store.LatestDate(ctx)
	if err != nil {
		return nil, err
	}

	obs, err := e.store.Get(ctx, latest, code)
	if err != nil {
		return nil, err
	}
	rate := obs.Rate()

	daily, err := e.calculator.dailyChange(ctx, code, latest, rate)
	if err != nil {
		return nil, err
	}

	high, low, err := e.calculator.ComputeWindowExtremes(ctx, code, latest, latest.AddDays(-WindowExtremesDays), latest)
	if err != nil {
		return nil, err
	}

	change14, err := e.calculator.periodChange(ctx, code, latest, ShortChangeDays, rate)
	if err != nil {
		return nil, err
	}
	change30, err := e.calculator.periodChange(ctx, code, latest, LongChangeDays, rate)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"code": code,
		"date": latest.String(),
		"rate": rate,
	}).Debug("Resolved current rate")

	return &CurrentRate{
		Code:        code,
		Name:        obs.CurrencyName,
		Date:        latest,
		Rate:        rate,
		DailyChange: daily,
		Stats: RateStats{
			High7d:    high,
			Low7d:     low,
			Change14d: change14,
			Change30d: change30,
		},
	}, nil
}

// ListCurrencies возвращает валюты, присутствующие на LatestDate
func (e *Engine) ListCurrencies(ctx context.Context) ([]storages.Currency, error) {
	latest, err := e.store.LatestDate(ctx)
	if err != nil {
		return nil, err
	}
	return e.store.DistinctCurrenciesOn(ctx, latest)
}

// GetHistory возвращает курсы за последние days дней от LatestDate
func (e *Engine) GetHistory(ctx context.Context, code string, days int) ([]HistoryPoint, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, apperrors.NewValidationError("days must be positive, got %d", days)
	}

	latest, err := e.store.LatestDate(ctx)
	if err != nil {
		return nil, err
	}
	// Окно не может начинаться раньше datekey.Min
	if int64(days) > int64(latest-datekey.Min) {
		return nil, apperrors.NewValidationError("days %d reaches before %s", days, datekey.Min)
	}

	return e.series(ctx, code, latest.AddDays(-days), latest)
}

// GetHistoryRange возвращает курсы на [start, end] включительно
func (e *Engine) GetHistoryRange(ctx context.Context, code string, start, end datekey.Key) ([]HistoryPoint, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, apperrors.NewValidationError("start date %s is after end date %s", start, end)
	}

	return e.series(ctx, code, start, end)
}

func (e *Engine) series(ctx context.Context, code string, from, to datekey.Key) ([]HistoryPoint, error) {
	rows, err := e.store.Range(ctx, code, from, to)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError("no observations for %s between %s and %s", code, from, to)
	}

	points := make([]HistoryPoint, len(rows))
	for i, obs := range rows {
		points[i] = HistoryPoint{Date: obs.Date, Rate: obs.Rate()}
	}
	return points, nil
}

// ConvertAmount пересчитывает сумму по курсам на LatestDate
func (e *Engine) ConvertAmount(ctx context.Context, from, to string, amount float64) (*ConversionResult, error) {
	from, err := normalizeCode(from)
	if err != nil {
		return nil, err
	}
	to, err = normalizeCode(to)
	if err != nil {
		return nil, err
	}
	if err := pkg.ValidateAmount(amount); err != nil {
		return nil, apperrors.NewValidationError("%v, got %g", err, amount)
	}

	latest, err := e.store.LatestDate(ctx)
	if err != nil {
		return nil, err
	}

	result, rate, err := e.converter.Convert(ctx, from, to, amount, latest)
	if err != nil {
		return nil, err
	}

	return &ConversionResult{
		From:   from,
		To:     to,
		Amount: amount,
		Result: result,
		Rate:   rate,
		Date:   latest,
	}, nil
}

func normalizeCode(code string) (string, error) {
	normalized := pkg.NormalizeCurrency(code)
	if normalized == "" {
		return "", apperrors.NewValidationError("currency code is required")
	}
	return normalized, nil
}

// Querier операции движка, доступные граничным слоям (HTTP, gRPC, бот)
type Querier interface {
	GetCurrent(ctx context.Context, code string) (*CurrentRate, error)
	ListCurrencies(ctx context.Context) ([]storages.Currency, error)
	GetHistory(ctx context.Context, code string, days int) ([]HistoryPoint, error)
	GetHistoryRange(ctx context.Context, code string, start, end datekey.Key) ([]HistoryPoint, error)
	ConvertAmount(ctx context.Context, from, to string, amount float64) (*ConversionResult, error)
}

var _ Querier = (*Engine)(nil)
