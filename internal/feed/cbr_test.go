package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// "Доллар США" в windows-1251
const usdNameCP1251 = "\xc4\xee\xeb\xeb\xe0\xf0 \xd1\xd8\xc0"

const dailyFeed = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="05.03.2024" name="Foreign Currency Market">
<Valute ID="R01235"><NumCode>840</NumCode><CharCode>USD</CharCode><Nominal>1</Nominal><Name>` + usdNameCP1251 + `</Name><Value>91,7069</Value></Valute>
<Valute ID="R01820"><NumCode>392</NumCode><CharCode>JPY</CharCode><Nominal>100</Nominal><Name>JPY</Name><Value>61,0400</Value></Valute>
</ValCurs>`

func TestFetchDailyParsesFeed(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("date_req")
		w.Header().Set("Content-Type", "application/xml; charset=windows-1251")
		_, _ = w.Write([]byte(dailyFeed))
	}))
	defer server.Close()

	client := NewCBRClient(server.URL, time.Second, quietLogger())
	date, err := datekey.ParseDisplay("05/03/2024")
	require.NoError(t, err)

	observations, err := client.FetchDaily(context.Background(), &date)
	require.NoError(t, err)

	assert.Equal(t, "05/03/2024", gotQuery)
	require.Len(t, observations, 3)

	usd := observations[0]
	assert.Equal(t, "USD", usd.CurrencyCode)
	assert.Equal(t, "Доллар США", usd.CurrencyName)
	assert.Equal(t, date, usd.Date)
	assert.InDelta(t, 91.7069, usd.NumeratorValue, 1e-9)

	jpy := observations[1]
	assert.Equal(t, 100.0, jpy.Nominal)
	assert.InDelta(t, 0.6104, jpy.Rate(), 1e-9)

	base := observations[2]
	assert.Equal(t, BaseCurrency, base.CurrencyCode)
	assert.Equal(t, 1.0, base.Rate())
}

func TestFetchDailyLatestOmitsDateParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(dailyFeed))
	}))
	defer server.Close()

	observations, err := NewCBRClient(server.URL, time.Second, quietLogger()).FetchDaily(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, observations)
}

func TestFetchDailyErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "bad status", status: http.StatusInternalServerError, body: "oops"},
		{name: "broken xml", status: http.StatusOK, body: "<ValCurs", wantErr: apperrors.ErrFormat},
		{name: "bad number", status: http.StatusOK, wantErr: apperrors.ErrFormat,
			body: `<ValCurs Date="05.03.2024"><Valute><CharCode>USD</CharCode><Nominal>1</Nominal><Name>USD</Name><Value>n/a</Value></Valute></ValCurs>`},
		{name: "no rates", status: http.StatusOK, wantErr: apperrors.ErrNotFound,
			body: `<ValCurs Date="09.03.2024"></ValCurs>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewCBRClient(server.URL, time.Second, quietLogger()).FetchDaily(context.Background(), nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal(" 91,7069 ")
	require.NoError(t, err)
	assert.Equal(t, 91.7069, v)

	v, err = ParseDecimal("100")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = ParseDecimal("1,2,3")
	assert.ErrorIs(t, err, apperrors.ErrFormat)
}
