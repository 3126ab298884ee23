package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
)

func newTestStorage() *MemoryStorage {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(logger)
}

func day(t *testing.T, s string) datekey.Key {
	t.Helper()
	key, err := datekey.ParseDisplay(s)
	require.NoError(t, err)
	return key
}

func obs(date datekey.Key, code string, value, nominal float64) storages.Observation {
	return storages.Observation{Date: date, CurrencyCode: code, CurrencyName: code + " name", NumeratorValue: value, Nominal: nominal}
}

func TestUpsertReplacesSameKey(t *testing.T) {
	s := newTestStorage()
	ctx := context.Background()
	d := day(t, "05/03/2024")

	require.NoError(t, s.Upsert(ctx, []storages.Observation{obs(d, "USD", 91, 1)}))
	require.NoError(t, s.Upsert(ctx, []storages.Observation{obs(d, "USD", 92, 1)}))

	got, err := s.Get(ctx, d, "USD")
	require.NoError(t, err)
	assert.Equal(t, 92.0, got.NumeratorValue)

	rows, err := s.Range(ctx, "USD", datekey.Min, datekey.Max)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	batch := []storages.Observation{
		obs(day(t, "01/03/2024"), "USD", 90, 1),
		obs(day(t, "05/03/2024"), "USD", 92, 1),
		obs(day(t, "05/03/2024"), "JPY", 60, 100),
	}

	once := newTestStorage()
	require.NoError(t, once.Upsert(ctx, batch))

	twice := newTestStorage()
	require.NoError(t, twice.Upsert(ctx, batch))
	require.NoError(t, twice.Upsert(ctx, batch))

	assert.Equal(t, once.byDate, twice.byDate)
	assert.Equal(t, once.dates, twice.dates)
}

func TestUpsertRejectsNonPositiveNominal(t *testing.T) {
	s := newTestStorage()
	err := s.Upsert(context.Background(), []storages.Observation{
		obs(day(t, "05/03/2024"), "USD", 92, 1),
		obs(day(t, "05/03/2024"), "EUR", 100, 0),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	exists, _ := s.Exists(context.Background(), day(t, "05/03/2024"))
	assert.False(t, exists, "rejected batch must not be partially written")
}

func TestLatestDateAndExists(t *testing.T) {
	s := newTestStorage()
	ctx := context.Background()

	_, err := s.LatestDate(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, []storages.Observation{
		obs(day(t, "05/03/2024"), "USD", 92, 1),
		obs(day(t, "01/03/2024"), "USD", 90, 1),
	}))

	latest, err := s.LatestDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "05/03/2024", latest.Display())

	exists, err := s.Exists(ctx, day(t, "03/03/2024"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRangeIsInclusiveAndOrdered(t *testing.T) {
	s := newTestStorage()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []storages.Observation{
		obs(day(t, "05/03/2024"), "USD", 92, 1),
		obs(day(t, "01/03/2024"), "USD", 90, 1),
		obs(day(t, "03/03/2024"), "EUR", 99, 1),
		obs(day(t, "07/03/2024"), "USD", 93, 1),
	}))

	rows, err := s.Range(ctx, "USD", day(t, "01/03/2024"), day(t, "05/03/2024"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "01/03/2024", rows[0].Date.Display())
	assert.Equal(t, "05/03/2024", rows[1].Date.Display())

	rows, err = s.Range(ctx, "GBP", datekey.Min, datekey.Max)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDistinctCurrenciesOn(t *testing.T) {
	s := newTestStorage()
	ctx := context.Background()
	d := day(t, "05/03/2024")
	require.NoError(t, s.Upsert(ctx, []storages.Observation{obs(d, "USD", 92, 1), obs(d, "EUR", 100, 1)}))

	currencies, err := s.DistinctCurrenciesOn(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, []storages.Currency{{Code: "EUR", Name: "EUR name"}, {Code: "USD", Name: "USD name"}}, currencies)
}

func TestReadersNeverSeeHalfBatch(t *testing.T) {
	s := newTestStorage()
	ctx := context.Background()
	codes := []string{"USD", "EUR", "CNY", "JPY", "GBP", "CHF"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			d := datekey.Key(19000 + i)
			batch := make([]storages.Observation, 0, len(codes))
			for _, code := range codes {
				batch = append(batch, obs(d, code, float64(i+1), 1))
			}
			_ = s.Upsert(ctx, batch)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				latest, err := s.LatestDate(ctx)
				if err != nil {
					continue
				}
				currencies, _ := s.DistinctCurrenciesOn(ctx, latest)
				if len(currencies) != len(codes) {
					panic(fmt.Sprintf("partial batch visible: %d currencies on %s", len(currencies), latest))
				}
			}
		}()
	}
	wg.Wait()
}
