package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/internal/storages/memory"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type dialRecord struct {
	address string
	timeout time.Duration
	closed  bool
}

// localDial подменяет gRPC-клиент движком поверх хранилища в памяти
func localDial(t *testing.T, rec *dialRecord) dialFunc {
	t.Helper()

	store := memory.New(quietLogger())
	key := func(s string) datekey.Key {
		k, err := datekey.ParseDisplay(s)
		require.NoError(t, err)
		return k
	}
	require.NoError(t, store.Upsert(context.Background(), []storages.Observation{
		{Date: key("01/03/2024"), CurrencyCode: "USD", CurrencyName: "Доллар США", NumeratorValue: 90, Nominal: 1},
		{Date: key("05/03/2024"), CurrencyCode: "USD", CurrencyName: "Доллар США", NumeratorValue: 92, Nominal: 1},
		{Date: key("05/03/2024"), CurrencyCode: "EUR", CurrencyName: "Евро", NumeratorValue: 100, Nominal: 1},
	}))

	return func(address string, timeout time.Duration, logLevel string) (engine.Querier, func() error, error) {
		rec.address = address
		rec.timeout = timeout
		return engine.New(store, quietLogger()), func() error {
			rec.closed = true
			return nil
		}, nil
	}
}

func execute(t *testing.T, args ...string) (string, *dialRecord, error) {
	t.Helper()

	rec := &dialRecord{}
	cmd := newRootCmd(localDial(t, rec))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), rec, err
}

func TestCurrent(t *testing.T) {
	out, rec, err := execute(t, "--addr", "rates:50051", "--timeout", "2s", "current", "usd")
	require.NoError(t, err)

	assert.Contains(t, out, "USD (Доллар США) on 05/03/2024")
	assert.Contains(t, out, "rate:       92.0000")
	assert.Contains(t, out, "daily:      +2.0000")
	assert.Equal(t, "rates:50051", rec.address)
	assert.Equal(t, 2*time.Second, rec.timeout)
	assert.True(t, rec.closed)
}

func TestAddressFromEnvironment(t *testing.T) {
	t.Setenv("RATES_API_ADDRESS", "env-host:6000")

	_, rec, err := execute(t, "currencies")
	require.NoError(t, err)
	assert.Equal(t, "env-host:6000", rec.address)
}

func TestCurrenciesJSON(t *testing.T) {
	out, _, err := execute(t, "--addr", "x", "--json", "currencies")
	require.NoError(t, err)

	var currencies []storages.Currency
	require.NoError(t, json.Unmarshal([]byte(out), &currencies))
	codes := make([]string, 0, len(currencies))
	for _, c := range currencies {
		codes = append(codes, c.Code)
	}
	assert.Contains(t, codes, "USD")
	assert.Contains(t, codes, "EUR")
}

func TestHistoryAndRange(t *testing.T) {
	out, _, err := execute(t, "--addr", "x", "history", "USD", "--days", "7")
	require.NoError(t, err)
	assert.Equal(t, "01/03/2024  90.0000\n05/03/2024  92.0000\n", out)

	out, _, err = execute(t, "--addr", "x", "range", "USD", "02/03/2024", "05/03/2024")
	require.NoError(t, err)
	assert.Equal(t, "05/03/2024  92.0000\n", out)
}

func TestConvert(t *testing.T) {
	out, _, err := execute(t, "--addr", "x", "convert", "10", "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "10 USD = 10.8696 EUR (rate 1.0870 on 05/03/2024)\n", out)
}

func TestErrorsCarryKind(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind string
	}{
		{"unknown currency", []string{"current", "XXX"}, "not_found"},
		{"bad amount", []string{"convert", "ten", "USD", "EUR"}, "format_error"},
		{"bad date", []string{"range", "USD", "2024-03-01", "05/03/2024"}, "format_error"},
		{"empty range", []string{"range", "USD", "01/01/2020", "02/01/2020"}, "not_found"},
		{"zero days", []string{"history", "USD", "--days", "0"}, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append([]string{"--addr", "x"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.kind)
		})
	}
}

func TestArgumentCount(t *testing.T) {
	_, _, err := execute(t, "--addr", "x", "convert", "10", "USD")
	assert.Error(t, err)
}
