package engine

import (
	"context"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
)

// Calculator считает оконную статистику по курсу валюты
type Calculator struct {
	store    storages.RateStore
	resolver *Resolver
}

// NewCalculator создает калькулятор статистики
func NewCalculator(store storages.RateStore, resolver *Resolver) *Calculator {
	return &Calculator{store: store, resolver: resolver}
}

// ComputeDailyChange возвращает rate(reference) - rate(reference - 1 день).
// Предыдущий день берется только точным совпадением; если его нет, изменение равно 0.
func (c *Calculator) ComputeDailyChange(ctx context.Context, code string, reference datekey.Key) (float64, error) {
	current, err := c.store.Get(ctx, reference, code)
	if err != nil {
		return 0, err
	}
	return c.dailyChange(ctx, code, reference, current.Rate())
}

func (c *Calculator) dailyChange(ctx context.Context, code string, reference datekey.Key, rate float64) (float64, error) {
	prev, err := c.store.Get(ctx, reference.AddDays(-1), code)
	if apperrors.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rate - prev.Rate(), nil
}

// ComputeWindowExtremes возвращает максимум и минимум курса на [from, to].
// Пустое окно дает курс за reference в обоих значениях.
func (c *Calculator) ComputeWindowExtremes(ctx context.Context, code string, reference, from, to datekey.Key) (high, low float64, err error) {
	rows, err := c.store.Range(ctx, code, from, to)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		current, err := c.store.Get(ctx, reference, code)
		if err != nil {
			return 0, 0, err
		}
		return current.Rate(), current.Rate(), nil
	}
	high, low = extremes(rows)
	return high, low, nil
}

func extremes(rows []storages.Observation) (high, low float64) {
	high, low = rows[0].Rate(), rows[0].Rate()
	for _, obs := range rows[1:] {
		rate := obs.Rate()
		if rate > high {
			high = rate
		}
		if rate < low {
			low = rate
		}
	}
	return high, low
}

// ComputePeriodChange возвращает rate(reference) минус ближайший курс не позже reference - daysBack.
// Если такого курса нет, изменение равно 0.
func (c *Calculator) ComputePeriodChange(ctx context.Context, code string, reference datekey.Key, daysBack int) (float64, error) {
	current, err := c.store.Get(ctx, reference, code)
	if err != nil {
		return 0, err
	}
	return c.periodChange(ctx, code, reference, daysBack, current.Rate())
}

func (c *Calculator) periodChange(ctx context.Context, code string, reference datekey.Key, daysBack int, rate float64) (float64, error) {
	past, err := c.resolver.ResolveAtOrBefore(ctx, code, reference.AddDays(-daysBack))
	if apperrors.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rate - past, nil
}
