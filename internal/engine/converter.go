package engine

import (
	"context"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
)

// Converter пересчитывает суммы по курсам одного дня
type Converter struct {
	store storages.RateStore
}

// NewConverter создает конвертер
func NewConverter(store storages.RateStore) *Converter {
	return &Converter{store: store}
}

// Convert возвращает amount * rate, где rate = курс(to) / курс(from) на дату on.
// Оба курса должны существовать ровно на эту дату.
func (c *Converter) Convert(ctx context.Context, from, to string, amount float64, on datekey.Key) (result, rate float64, err error) {
	if err := pkg.ValidateAmount(amount); err != nil {
		return 0, 0, apperrors.NewValidationError("%v, got %g", err, amount)
	}

	fromObs, err := c.store.Get(ctx, on, from)
	if err != nil {
		return 0, 0, err
	}
	toObs, err := c.store.Get(ctx, on, to)
	if err != nil {
		return 0, 0, err
	}

	rate = toObs.Rate() / fromObs.Rate()
	return amount * rate, rate, nil
}
