package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"github.com/sirupsen/logrus"
)

// MemoryStorage реализует интерфейс RateStore в памяти процесса
type MemoryStorage struct {
	mu     sync.RWMutex
	byDate map[datekey.Key]map[string]storages.Observation
	dates  []datekey.Key // отсортированы по возрастанию
	logger *logrus.Logger
}

// New создает пустое хранилище
func New(logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		byDate: make(map[datekey.Key]map[string]storages.Observation),
		logger: logger,
	}
}

// Upsert записывает пакет под одной блокировкой записи
func (s *MemoryStorage) Upsert(ctx context.Context, observations []storages.Observation) error {
	for _, obs := range observations {
		if obs.Nominal <= 0 {
			return apperrors.NewValidationError("nominal must be positive for %s on %s", obs.CurrencyCode, obs.Date)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obs := range observations {
		obs.CurrencyCode = strings.ToUpper(obs.CurrencyCode)
		day, ok := s.byDate[obs.Date]
		if !ok {
			day = make(map[string]storages.Observation)
			s.byDate[obs.Date] = day
			s.insertDateLocked(obs.Date)
		}
		day[obs.CurrencyCode] = obs
	}

	s.logger.Debugf("Upserted %d observations", len(observations))
	return nil
}

func (s *MemoryStorage) insertDateLocked(date datekey.Key) {
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] >= date })
	s.dates = append(s.dates, 0)
	copy(s.dates[i+1:], s.dates[i:])
	s.dates[i] = date
}

// Exists сообщает, есть ли наблюдения за дату
func (s *MemoryStorage) Exists(ctx context.Context, date datekey.Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byDate[date]
	return ok, nil
}

// Get возвращает наблюдение за дату
func (s *MemoryStorage) Get(ctx context.Context, date datekey.Key, code string) (*storages.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, ok := s.byDate[date][code]
	if !ok {
		return nil, apperrors.NewNotFoundError("no observation for %s on %s", code, date)
	}
	return &obs, nil
}

// LatestDate возвращает максимальную дату
func (s *MemoryStorage) LatestDate(ctx context.Context) (datekey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.dates) == 0 {
		return 0, apperrors.NewNotFoundError("rate store is empty")
	}
	return s.dates[len(s.dates)-1], nil
}

// DistinctCurrenciesOn возвращает валюты за дату, отсортированные по коду
func (s *MemoryStorage) DistinctCurrenciesOn(ctx context.Context, date datekey.Key) ([]storages.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := s.byDate[date]
	currencies := make([]storages.Currency, 0, len(day))
	for code, obs := range day {
		currencies = append(currencies, storages.Currency{Code: code, Name: obs.CurrencyName})
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i].Code < currencies[j].Code })
	return currencies, nil
}

// Range возвращает наблюдения валюты в [from, to] по возрастанию даты
func (s *MemoryStorage) Range(ctx context.Context, code string, from, to datekey.Key) ([]storages.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] >= from })

	var result []storages.Observation
	for _, date := range s.dates[start:] {
		if date > to {
			break
		}
		if obs, ok := s.byDate[date][code]; ok {
			result = append(result, obs)
		}
	}
	return result, nil
}

// Ping всегда успешен
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close ничего не освобождает
func (s *MemoryStorage) Close() error {
	return nil
}
