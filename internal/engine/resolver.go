package engine

import (
	"context"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
)

// Resolver находит последнее известное наблюдение не позже целевой даты
type Resolver struct {
	store storages.RateStore
}

// NewResolver создает резолвер поверх хранилища
func NewResolver(store storages.RateStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveAtOrBefore возвращает курс за максимальную дату <= target
func (r *Resolver) ResolveAtOrBefore(ctx context.Context, code string, target datekey.Key) (float64, error) {
	obs, err := r.observationAtOrBefore(ctx, code, target)
	if err != nil {
		return 0, err
	}
	return obs.Rate(), nil
}

func (r *Resolver) observationAtOrBefore(ctx context.Context, code string, target datekey.Key) (*storages.Observation, error) {
	rows, err := r.store.Range(ctx, code, datekey.Min, target)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError("no observation for %s at or before %s", code, target)
	}
	last := rows[len(rows)-1]
	return &last, nil
}
