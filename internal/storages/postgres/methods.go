package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"github.com/lib/pq"
)

// upsertLockID ключ advisory lock, сериализующего пакеты между процессами
const upsertLockID = 7310420

const selectObservation = `SELECT rate_date, code, name, value, nominal FROM currency_rates`

// Upsert записывает пакет наблюдений в одной транзакции
func (s *PostgresStorage) Upsert(ctx context.Context, observations []storages.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Errorf("Failed to begin upsert transaction: %v", err)
		return apperrors.NewStoreUnavailableError("begin upsert", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", upsertLockID); err != nil {
		s.logger.Errorf("Failed to acquire upsert lock: %v", err)
		return apperrors.NewStoreUnavailableError("acquire upsert lock", err)
	}

	query := `
		INSERT INTO currency_rates (rate_date, code, name, value, nominal, created_at, updated_at)
		VALUES ($1::date, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (rate_date, code) DO UPDATE
		SET name = EXCLUDED.name, value = EXCLUDED.value, nominal = EXCLUDED.nominal, updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	for _, obs := range observations {
		_, err := tx.ExecContext(ctx, query,
			obs.Date.ISO(),
			obs.CurrencyCode,
			obs.CurrencyName,
			obs.NumeratorValue,
			obs.Nominal,
			now,
		)
		if err != nil {
			s.logger.Errorf("Failed to upsert %s on %s: %v", obs.CurrencyCode, obs.Date, err)
			return classify(fmt.Sprintf("upsert %s on %s", obs.CurrencyCode, obs.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Errorf("Failed to commit upsert: %v", err)
		return apperrors.NewStoreUnavailableError("commit upsert", err)
	}

	s.logger.Infof("Upserted %d observations", len(observations))
	return nil
}

// Exists проверяет наличие наблюдений за дату
func (s *PostgresStorage) Exists(ctx context.Context, date datekey.Key) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM currency_rates WHERE rate_date = $1::date)",
		date.ISO(),
	).Scan(&exists)
	if err != nil {
		s.logger.Errorf("Failed to check date %s: %v", date, err)
		return false, apperrors.NewStoreUnavailableError("exists", err)
	}
	return exists, nil
}

// Get возвращает наблюдение за дату
func (s *PostgresStorage) Get(ctx context.Context, date datekey.Key, code string) (*storages.Observation, error) {
	query := selectObservation + ` WHERE rate_date = $1::date AND code = $2`

	obs, err := scanObservation(s.db.QueryRowContext(ctx, query, date.ISO(), code))
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debugf("Observation not found: %s on %s", code, date)
		return nil, apperrors.NewNotFoundError("no observation for %s on %s", code, date)
	}
	if err != nil {
		s.logger.Errorf("Failed to get observation: %v", err)
		return nil, apperrors.NewStoreUnavailableError("get observation", err)
	}
	return obs, nil
}

// LatestDate возвращает максимальную дату в хранилище
func (s *PostgresStorage) LatestDate(ctx context.Context) (datekey.Key, error) {
	var latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(rate_date) FROM currency_rates").Scan(&latest); err != nil {
		s.logger.Errorf("Failed to get latest date: %v", err)
		return 0, apperrors.NewStoreUnavailableError("latest date", err)
	}
	if !latest.Valid {
		return 0, apperrors.NewNotFoundError("rate store is empty")
	}
	return datekey.FromTime(latest.Time), nil
}

// DistinctCurrenciesOn возвращает валюты за дату
func (s *PostgresStorage) DistinctCurrenciesOn(ctx context.Context, date datekey.Key) ([]storages.Currency, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name FROM currency_rates WHERE rate_date = $1::date ORDER BY code",
		date.ISO(),
	)
	if err != nil {
		s.logger.Errorf("Failed to query currencies: %v", err)
		return nil, apperrors.NewStoreUnavailableError("distinct currencies", err)
	}
	defer rows.Close()

	var currencies []storages.Currency
	for rows.Next() {
		var c storages.Currency
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			s.logger.Errorf("Failed to scan currency: %v", err)
			return nil, apperrors.NewStoreUnavailableError("scan currency", err)
		}
		currencies = append(currencies, c)
	}

	if err = rows.Err(); err != nil {
		s.logger.Errorf("Error iterating currencies: %v", err)
		return nil, apperrors.NewStoreUnavailableError("iterate currencies", err)
	}

	return currencies, nil
}

// Range возвращает наблюдения валюты в [from, to]
func (s *PostgresStorage) Range(ctx context.Context, code string, from, to datekey.Key) ([]storages.Observation, error) {
	query := selectObservation + `
		WHERE code = $1 AND rate_date BETWEEN $2::date AND $3::date
		ORDER BY rate_date
	`

	rows, err := s.db.QueryContext(ctx, query, code, from.ISO(), to.ISO())
	if err != nil {
		s.logger.Errorf("Failed to query range: %v", err)
		return nil, apperrors.NewStoreUnavailableError("range", err)
	}
	defer rows.Close()

	var result []storages.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			s.logger.Errorf("Failed to scan observation: %v", err)
			return nil, apperrors.NewStoreUnavailableError("scan observation", err)
		}
		result = append(result, *obs)
	}

	if err = rows.Err(); err != nil {
		s.logger.Errorf("Error iterating observations: %v", err)
		return nil, apperrors.NewStoreUnavailableError("iterate observations", err)
	}

	s.logger.Debugf("Retrieved %d observations for %s in [%s, %s]", len(result), code, from, to)
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(row rowScanner) (*storages.Observation, error) {
	var (
		obs  storages.Observation
		date time.Time
	)
	if err := row.Scan(&date, &obs.CurrencyCode, &obs.CurrencyName, &obs.NumeratorValue, &obs.Nominal); err != nil {
		return nil, err
	}
	obs.Date = datekey.FromTime(date)
	return &obs, nil
}

// classify отделяет нарушения ограничений от недоступности хранилища
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return apperrors.NewValidationError("%s: %s", op, pqErr.Message)
	}
	return apperrors.NewStoreUnavailableError(op, err)
}
