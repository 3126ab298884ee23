// Package refresh загружает курсы из внешнего источника в хранилище.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SourceCBR идентификатор источника в событиях
const SourceCBR = "cbr"

// Fetcher загружает наблюдения за дату; nil означает последнюю дату
type Fetcher interface {
	FetchDaily(ctx context.Context, date *datekey.Key) ([]storages.Observation, error)
}

// Publisher публикует событие об обновлении курсов
type Publisher interface {
	PublishRatesUpdated(ctx context.Context, event storages.RatesUpdatedEvent) error
}

// Publishers рассылает событие всем получателям по очереди.
// Сбой одного получателя не мешает остальным.
type Publishers []Publisher

// PublishRatesUpdated реализует Publisher
func (p Publishers) PublishRatesUpdated(ctx context.Context, event storages.RatesUpdatedEvent) error {
	var errs []error
	for _, publisher := range p {
		if err := publisher.PublishRatesUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config параметры обновления
type Config struct {
	Interval      time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Concurrency   int
	BackfillDays  int
}

// Result итог загрузки одной даты
type Result struct {
	Date       datekey.Key `json:"date"`
	Currencies int         `json:"currencies"`
}

// BackfillResult итог загрузки диапазона
type BackfillResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Refresher единственный писатель хранилища курсов
type Refresher struct {
	fetcher   Fetcher
	store     storages.RateStore
	publisher Publisher
	validate  *validator.Validate
	cfg       Config
	logger    *logrus.Logger
	now       func() time.Time
}

// New создает refresher; publisher может быть nil
func New(fetcher Fetcher, store storages.RateStore, publisher Publisher, cfg Config, logger *logrus.Logger) *Refresher {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Refresher{
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		validate:  validator.New(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run обновляет курсы сразу и затем с интервалом cfg.Interval до отмены ctx
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Infof("Starting rates refresher with interval %s", r.cfg.Interval)

	if _, err := r.RefreshOnce(ctx); err != nil {
		r.logger.Errorf("Initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Rates refresher stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RefreshOnce(ctx); err != nil {
				r.logger.Errorf("Scheduled refresh failed: %v", err)
			}
		}
	}
}

// RefreshOnce загружает последнюю опубликованную дату.
// Событие публикуется только для даты, которой еще не было в хранилище.
func (r *Refresher) RefreshOnce(ctx context.Context) (*Result, error) {
	observations, err := r.fetcher.FetchDaily(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest rates: %w", err)
	}
	return r.ingest(ctx, observations, true)
}

// RefreshDate загружает одну дату без публикации события
func (r *Refresher) RefreshDate(ctx context.Context, date datekey.Key) (*Result, error) {
	observations, err := r.fetcher.FetchDaily(ctx, &date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates for %s: %w", date, err)
	}
	return r.ingest(ctx, observations, false)
}

// Backfill загружает даты [from, to], пропуская уже сохраненные.
// Ошибка одной даты не прерывает остальные.
func (r *Refresher) Backfill(ctx context.Context, from, to datekey.Key) (*BackfillResult, error) {
	if from.After(to) {
		return nil, apperrors.NewValidationError("backfill start %s is after end %s", from, to)
	}

	var loaded, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for date := from; !date.After(to); date = date.AddDays(1) {
		date := date
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			exists, err := r.store.Exists(gctx, date)
			if err != nil {
				failed.Add(1)
				r.logger.Warnf("Failed to check %s before backfill: %v", date, err)
				return nil
			}
			if exists {
				skipped.Add(1)
				return nil
			}

			if _, err := r.RefreshDate(gctx, date); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				r.logger.Warnf("Backfill of %s failed: %v", date, err)
				return nil
			}
			loaded.Add(1)
			return nil
		})
	}

	err := g.Wait()
	result := &BackfillResult{
		Loaded:  int(loaded.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}

	r.logger.WithFields(logrus.Fields{
		"from":    from.String(),
		"to":      to.String(),
		"loaded":  result.Loaded,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("Backfill finished")

	return result, err
}

// EnsureHistory заполняет последние cfg.BackfillDays дней, если хранилище пусто
func (r *Refresher) EnsureHistory(ctx context.Context) error {
	_, err := r.store.LatestDate(ctx)
	if err == nil {
		return nil
	}
	if !apperrors.IsNotFound(err) {
		return err
	}

	today := datekey.FromTime(r.now())
	r.logger.Infof("Rate store is empty, backfilling %d days", r.cfg.BackfillDays)
	_, err = r.Backfill(ctx, today.AddDays(-r.cfg.BackfillDays), today)
	return err
}

// ingest проверяет пакет, записывает его с повторами и публикует событие
func (r *Refresher) ingest(ctx context.Context, observations []storages.Observation, notify bool) (*Result, error) {
	if len(observations) == 0 {
		return nil, apperrors.NewNotFoundError("feed returned no observations")
	}

	date := observations[0].Date
	for i := range observations {
		if observations[i].Date != date {
			return nil, apperrors.NewValidationError("batch mixes dates %s and %s", date, observations[i].Date)
		}
		if err := r.validate.Struct(observations[i]); err != nil {
			return nil, apperrors.NewValidationError("invalid observation %s on %s: %v",
				observations[i].CurrencyCode, date, err)
		}
	}

	known := false
	if notify {
		exists, err := r.store.Exists(ctx, date)
		if err != nil {
			return nil, err
		}
		known = exists
	}

	if err := r.upsertWithRetry(ctx, observations); err != nil {
		return nil, err
	}

	result := &Result{Date: date, Currencies: len(observations)}
	r.logger.WithFields(logrus.Fields{
		"date":       date.String(),
		"currencies": result.Currencies,
		"new_date":   !known,
	}).Info("Rates refreshed")

	if notify && !known {
		r.publish(ctx, result)
	}
	return result, nil
}

func (r *Refresher) upsertWithRetry(ctx context.Context, observations []storages.Observation) error {
	var err error
	for attempt := 0; attempt < r.cfg.RetryAttempts; attempt++ {
		err = r.store.Upsert(ctx, observations)
		if err == nil || !errors.Is(err, apperrors.ErrStoreUnavailable) {
			return err
		}

		r.logger.Warnf("Attempt %d/%d: Failed to upsert rates: %v", attempt+1, r.cfg.RetryAttempts, err)

		if attempt < r.cfg.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}
	}
	return err
}

// publish отправляет событие; сбой публикации не отменяет записанные данные
func (r *Refresher) publish(ctx context.Context, result *Result) {
	if r.publisher == nil {
		return
	}

	event := storages.RatesUpdatedEvent{
		Date:       result.Date.Display(),
		ISODate:    result.Date.ISO(),
		Currencies: result.Currencies,
		Source:     SourceCBR,
		Timestamp:  r.now(),
	}
	if err := r.publisher.PublishRatesUpdated(ctx, event); err != nil {
		r.logger.Warnf("Failed to publish rates.updated for %s: %v", result.Date, err)
	}
}
