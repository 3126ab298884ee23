package engine

import (
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/internal/storages/memory"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func day(t *testing.T, s string) datekey.Key {
	t.Helper()
	key, err := datekey.ParseDisplay(s)
	require.NoError(t, err)
	return key
}

func observation(date datekey.Key, code string, value, nominal float64) storages.Observation {
	return storages.Observation{Date: date, CurrencyCode: code, CurrencyName: code, NumeratorValue: value, Nominal: nominal}
}

// scenarioStore: USD {01/03: 90, 05/03: 92}, EUR {05/03: 100}
func scenarioStore(t *testing.T) *memory.MemoryStorage {
	t.Helper()
	store := memory.New(quietLogger())
	require.NoError(t, store.Upsert(context.Background(), []storages.Observation{
		observation(day(t, "01/03/2024"), "USD", 90, 1),
		observation(day(t, "05/03/2024"), "USD", 92, 1),
		observation(day(t, "05/03/2024"), "EUR", 100, 1),
	}))
	return store
}

// countingStore считает обращения к хранилищу
type countingStore struct {
	storages.RateStore
	calls atomic.Int64
}

func (s *countingStore) LatestDate(ctx context.Context) (datekey.Key, error) {
	s.calls.Add(1)
	return s.RateStore.LatestDate(ctx)
}

func (s *countingStore) Range(ctx context.Context, code string, from, to datekey.Key) ([]storages.Observation, error) {
	s.calls.Add(1)
	return s.RateStore.Range(ctx, code, from, to)
}

// brokenStore имитирует недоступное хранилище
type brokenStore struct {
	storages.RateStore
}

func (brokenStore) LatestDate(context.Context) (datekey.Key, error) {
	return 0, apperrors.NewStoreUnavailableError("latest date", errors.New("connection refused"))
}

func TestGetCurrentScenario(t *testing.T) {
	e := New(scenarioStore(t), quietLogger())

	current, err := e.GetCurrent(context.Background(), " usd ")
	require.NoError(t, err)

	assert.Equal(t, "USD", current.Code)
	assert.Equal(t, "05/03/2024", current.Date.Display())
	assert.Equal(t, 92.0, current.Rate)
	assert.Equal(t, 0.0, current.DailyChange, "no exact 04/03 observation")
	assert.Equal(t, 92.0, current.Stats.High7d)
	assert.Equal(t, 90.0, current.Stats.Low7d)
	assert.Equal(t, 0.0, current.Stats.Change14d)
	assert.Equal(t, 0.0, current.Stats.Change30d)
}

func TestGetCurrentDailyChangeWithPriorDay(t *testing.T) {
	store := scenarioStore(t)
	require.NoError(t, store.Upsert(context.Background(), []storages.Observation{
		observation(day(t, "04/03/2024"), "USD", 91.5, 1),
		observation(day(t, "10/02/2024"), "USD", 88, 1),
	}))
	e := New(store, quietLogger())

	current, err := e.GetCurrent(context.Background(), "USD")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, current.DailyChange, 1e-9)
	assert.InDelta(t, 4.0, current.Stats.Change14d, 1e-9)
	assert.Equal(t, 0.0, current.Stats.Change30d)
}

func TestGetCurrentUsesNominal(t *testing.T) {
	store := memory.New(quietLogger())
	d := day(t, "05/03/2024")
	require.NoError(t, store.Upsert(context.Background(), []storages.Observation{
		observation(d, "JPY", 60.5, 100),
	}))

	current, err := New(store, quietLogger()).GetCurrent(context.Background(), "jpy")
	require.NoError(t, err)
	assert.InDelta(t, 0.605, current.Rate, 1e-12)
}

func TestGetCurrentNotFound(t *testing.T) {
	ctx := context.Background()

	_, err := New(memory.New(quietLogger()), quietLogger()).GetCurrent(ctx, "USD")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "empty store")

	_, err = New(scenarioStore(t), quietLogger()).GetCurrent(ctx, "GBP")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = New(scenarioStore(t), quietLogger()).GetCurrent(ctx, "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestResolveBridgesGaps(t *testing.T) {
	store := scenarioStore(t)
	resolver := NewResolver(store)
	calc := NewCalculator(store, resolver)
	ctx := context.Background()

	rate, err := resolver.ResolveAtOrBefore(ctx, "USD", day(t, "04/03/2024"))
	require.NoError(t, err)
	assert.Equal(t, 90.0, rate)

	_, err = resolver.ResolveAtOrBefore(ctx, "USD", day(t, "29/02/2024"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	daily, err := calc.ComputeDailyChange(ctx, "USD", day(t, "05/03/2024"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, daily)

	period, err := calc.ComputePeriodChange(ctx, "USD", day(t, "05/03/2024"), 4)
	require.NoError(t, err)
	assert.Equal(t, 2.0, period)
}

func TestWindowExtremesFallback(t *testing.T) {
	store := scenarioStore(t)
	calc := NewCalculator(store, NewResolver(store))
	ctx := context.Background()

	high, low, err := calc.ComputeWindowExtremes(ctx, "USD", day(t, "05/03/2024"), day(t, "10/03/2024"), day(t, "12/03/2024"))
	require.NoError(t, err)
	assert.Equal(t, 92.0, high)
	assert.Equal(t, 92.0, low)

	high, low, err = calc.ComputeWindowExtremes(ctx, "USD", day(t, "05/03/2024"), day(t, "01/03/2024"), day(t, "05/03/2024"))
	require.NoError(t, err)
	assert.Equal(t, 92.0, high)
	assert.Equal(t, 90.0, low)
}

func TestConvertAmount(t *testing.T) {
	e := New(scenarioStore(t), quietLogger())

	result, err := e.ConvertAmount(context.Background(), "usd", "EUR", 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0870, result.Rate, 1e-4)
	assert.InDelta(t, 10.87, result.Result, 1e-2)
	assert.Equal(t, "05/03/2024", result.Date.Display())
}

func TestConvertRequiresSameDayRates(t *testing.T) {
	store := scenarioStore(t)
	conv := NewConverter(store)

	_, _, err := conv.Convert(context.Background(), "USD", "EUR", 10, day(t, "01/03/2024"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "EUR has no 01/03 observation")
}

func TestConvertRejectsNonPositiveAmount(t *testing.T) {
	store := &countingStore{RateStore: scenarioStore(t)}
	e := New(store, quietLogger())

	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := e.ConvertAmount(context.Background(), "USD", "EUR", amount)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "amount %v", amount)
	}
	assert.Zero(t, store.calls.Load())
}

func TestGetHistory(t *testing.T) {
	e := New(scenarioStore(t), quietLogger())
	ctx := context.Background()

	points, err := e.GetHistory(ctx, "USD", 30)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "01/03/2024", points[0].Date.Display())
	assert.Equal(t, 92.0, points[1].Rate)

	points, err = e.GetHistory(ctx, "USD", 2)
	require.NoError(t, err)
	require.Len(t, points, 1)

	_, err = e.GetHistory(ctx, "GBP", 30)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = e.GetHistory(ctx, "USD", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.GetHistory(ctx, "USD", math.MaxInt)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Окно до самой ранней представимой даты допустимо
	latest := day(t, "05/03/2024")
	points, err = e.GetHistory(ctx, "USD", int(latest-datekey.Min))
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestUnknownCurrencyIsNotFound(t *testing.T) {
	e := New(scenarioStore(t), quietLogger())
	ctx := context.Background()

	_, err := e.ConvertAmount(ctx, "XXX", "EUR", 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "unknown source currency")

	_, err = e.ConvertAmount(ctx, "USD", "XXX", 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "unknown target currency")

	_, err = e.GetHistoryRange(ctx, "XXX", day(t, "01/03/2024"), day(t, "05/03/2024"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetHistoryRange(t *testing.T) {
	store := &countingStore{RateStore: scenarioStore(t)}
	e := New(store, quietLogger())
	ctx := context.Background()

	_, err := e.GetHistoryRange(ctx, "USD", day(t, "05/03/2024"), day(t, "01/03/2024"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, store.calls.Load(), "invalid range must not touch the store")

	points, err := e.GetHistoryRange(ctx, "USD", day(t, "01/03/2024"), day(t, "05/03/2024"))
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = e.GetHistoryRange(ctx, "USD", day(t, "02/03/2024"), day(t, "04/03/2024"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListCurrencies(t *testing.T) {
	currencies, err := New(scenarioStore(t), quietLogger()).ListCurrencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []storages.Currency{{Code: "EUR", Name: "EUR"}, {Code: "USD", Name: "USD"}}, currencies)
}

func TestStoreUnavailablePropagates(t *testing.T) {
	e := New(brokenStore{}, quietLogger())
	ctx := context.Background()

	_, err := e.GetCurrent(ctx, "USD")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	_, err = e.ListCurrencies(ctx)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	_, err = e.ConvertAmount(ctx, "USD", "EUR", 1)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestResolverNeverReturnsFutureObservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offsets := rapid.SliceOfNDistinct(rapid.IntRange(0, 60), 1, 20, rapid.ID[int]).Draw(t, "offsets")
		target := datekey.Key(19700 + rapid.IntRange(-5, 65).Draw(t, "target"))

		store := memory.New(quietLogger())
		batch := make([]storages.Observation, 0, len(offsets))
		for _, off := range offsets {
			batch = append(batch, observation(datekey.Key(19700+off), "USD", float64(off+1), 1))
		}
		if err := store.Upsert(context.Background(), batch); err != nil {
			t.Fatal(err)
		}

		obs, err := NewResolver(store).observationAtOrBefore(context.Background(), "USD", target)

		var want *datekey.Key
		for _, off := range offsets {
			d := datekey.Key(19700 + off)
			if !d.After(target) && (want == nil || d.After(*want)) {
				want = &d
			}
		}

		if want == nil {
			if !apperrors.IsNotFound(err) {
				t.Fatalf("expected not found for target %s, got %v", target, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if obs.Date.After(target) {
			t.Fatalf("resolved %s after target %s", obs.Date, target)
		}
		if obs.Date != *want {
			t.Fatalf("resolved %s, want %s", obs.Date, *want)
		}
	})
}
