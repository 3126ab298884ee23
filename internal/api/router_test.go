package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gw-currency-rates/internal/api/handlers"
	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/api/ws"
	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/refresh"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/internal/storages/memory"
)

const adminPassword = "s3cret-pass"

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

// fakeRefresher запоминает вызовы администратора
type fakeRefresher struct {
	mu        sync.Mutex
	refreshes int
	ranges    [][2]datekey.Key
}

func (f *fakeRefresher) RefreshOnce(ctx context.Context) (*refresh.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	key, _ := datekey.ParseDisplay("05/03/2024")
	return &refresh.Result{Date: key, Currencies: 3}, nil
}

func (f *fakeRefresher) Backfill(ctx context.Context, from, to datekey.Key) (*refresh.BackfillResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if from.After(to) {
		return nil, apperrors.NewValidationError("backfill start %s is after end %s", from, to)
	}
	f.ranges = append(f.ranges, [2]datekey.Key{from, to})
	return &refresh.BackfillResult{Loaded: 2, Skipped: 1}, nil
}

type unavailableStore struct {
	storages.RateStore
}

func (unavailableStore) LatestDate(ctx context.Context) (datekey.Key, error) {
	return 0, apperrors.NewStoreUnavailableError("latest date", errors.New("connection refused"))
}

type testServer struct {
	router    *gin.Engine
	refresher *fakeRefresher
}

func newTestServer(t *testing.T, store storages.RateStore, rate string) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	ipLimiter, err := middleware.NewIPLimiter(rate)
	require.NoError(t, err)

	refresher := &fakeRefresher{}
	router := SetupRouter(RouterDeps{
		Querier:       engine.New(store, quietLogger()),
		Refresher:     refresher,
		Admin:         handlers.AdminCredentials{Username: "admin", PasswordHash: string(hash)},
		JWTMiddleware: middleware.NewJWTMiddleware("test-secret", time.Hour, quietLogger()),
		Limiter:       ipLimiter,
		Hub:           ws.NewHub(engine.New(store, quietLogger()), quietLogger()),
		Logger:        quietLogger(),
		GinMode:       gin.TestMode,
	})
	return &testServer{router: router, refresher: refresher}
}

func seededStore(t *testing.T) *memory.MemoryStorage {
	t.Helper()
	store := memory.New(quietLogger())
	require.NoError(t, store.Upsert(context.Background(), []storages.Observation{
		{Date: day(t, "01/03/2024"), CurrencyCode: "USD", CurrencyName: "Доллар США", NumeratorValue: 90, Nominal: 1},
		{Date: day(t, "05/03/2024"), CurrencyCode: "USD", CurrencyName: "Доллар США", NumeratorValue: 92, Nominal: 1},
		{Date: day(t, "05/03/2024"), CurrencyCode: "EUR", CurrencyName: "Евро", NumeratorValue: 100, Nominal: 1},
	}))
	return store
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var payload map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &payload)
	}
	return w, payload
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")
	w, body := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestGetCurrentEndpoint(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	w, body := s.do(t, http.MethodGet, "/api/v1/currencies/usd", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USD", body["code"])
	assert.Equal(t, "05/03/2024", body["date"])
	assert.Equal(t, 92.0, body["rate"])

	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, 92.0, stats["high_7d"])
	assert.Equal(t, 90.0, stats["low_7d"])
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	tests := []struct {
		name   string
		path   string
		status int
		kind   string
	}{
		{"unknown currency", "/api/v1/currencies/XXX", http.StatusNotFound, "not_found"},
		{"bad days", "/api/v1/currencies/USD/history?days=abc", http.StatusBadRequest, "format_error"},
		{"non-positive days", "/api/v1/currencies/USD/history?days=0", http.StatusBadRequest, "validation_error"},
		{"bad range date", "/api/v1/currencies/USD/history/range?start=2024-03-01&end=05/03/2024", http.StatusBadRequest, "format_error"},
		{"inverted range", "/api/v1/currencies/USD/history/range?start=05/03/2024&end=01/03/2024", http.StatusBadRequest, "validation_error"},
		{"empty range", "/api/v1/currencies/USD/history/range?start=01/01/2024&end=10/01/2024", http.StatusNotFound, "not_found"},
		{"zero amount", "/api/v1/convert?from=USD&to=EUR&amount=0", http.StatusBadRequest, "validation_error"},
		{"bad amount", "/api/v1/convert?from=USD&to=EUR&amount=ten", http.StatusBadRequest, "format_error"},
		{"NaN amount", "/api/v1/convert?from=USD&to=EUR&amount=NaN", http.StatusBadRequest, "validation_error"},
		{"infinite amount", "/api/v1/convert?from=USD&to=EUR&amount=%2BInf", http.StatusBadRequest, "validation_error"},
		{"unknown source currency", "/api/v1/convert?from=XXX&to=EUR&amount=10", http.StatusNotFound, "not_found"},
		{"unknown target currency", "/api/v1/convert?from=USD&to=XXX&amount=10", http.StatusNotFound, "not_found"},
		{"days before calendar start", "/api/v1/currencies/USD/history?days=99999999999", http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestLiveStreamRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoreUnavailableIs503(t *testing.T) {
	s := newTestServer(t, unavailableStore{}, "100-M")

	w, body := s.do(t, http.MethodGet, "/api/v1/currencies", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "store_unavailable", body["error"])
}

func TestHistoryEndpoints(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	w, body := s.do(t, http.MethodGet, "/api/v1/currencies/USD/history?range=7", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7.0, body["days"])
	assert.Len(t, body["points"], 2)

	w, body = s.do(t, http.MethodGet, "/api/v1/currencies/USD/history/range?start=02/03/2024&end=05/03/2024", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	points := body["points"].([]interface{})
	require.Len(t, points, 1)
	assert.Equal(t, "05/03/2024", points[0].(map[string]interface{})["date"])
}

func TestConvertAliases(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	w, body := s.do(t, http.MethodGet, "/api/v1/convert?from_currency=usd&to_currency=eur&amount=10", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USD", body["from"])
	assert.InDelta(t, 1.0870, body["rate"].(float64), 1e-4)
	assert.InDelta(t, 10.87, body["result"].(float64), 1e-2)
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	w, _ := s.do(t, http.MethodPost, "/api/v1/admin/refresh", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/login", map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/v1/login", map[string]string{"username": "admin", "password": adminPassword}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	w, body = s.do(t, http.MethodPost, "/api/v1/admin/refresh", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.refresher.refreshes)
	assert.Equal(t, "05/03/2024", body["date"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/backfill", map[string]string{"from": "01/03/2024"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/v1/admin/backfill", map[string]string{"from": "05/03/2024", "to": "01/03/2024"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", body["error"])

	w, body = s.do(t, http.MethodPost, "/api/v1/admin/backfill", map[string]string{"from": "01/03/2024", "to": "05/03/2024"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["loaded"])
	require.Len(t, s.refresher.ranges, 1)
	assert.Equal(t, day(t, "01/03/2024"), s.refresher.ranges[0][0])
}

func TestRejectsForeignToken(t *testing.T) {
	s := newTestServer(t, seededStore(t), "100-M")

	foreign := middleware.NewJWTMiddleware("other-secret", time.Hour, quietLogger())
	token, err := foreign.GenerateToken("admin")
	require.NoError(t, err)

	w, _ := s.do(t, http.MethodPost, "/api/v1/admin/refresh", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, s.refresher.refreshes)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, seededStore(t), "2-M")

	for i := 0; i < 2; i++ {
		w, _ := s.do(t, http.MethodGet, "/api/v1/currencies", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := s.do(t, http.MethodGet, "/api/v1/currencies", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", body["error"])

	w, _ = s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
