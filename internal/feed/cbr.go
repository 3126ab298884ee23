// Package feed содержит клиентов внешних источников курсов.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/storages"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// BaseCurrency валюта, в которой котируются курсы ЦБ
const (
	BaseCurrency     = "RUB"
	BaseCurrencyName = "Российский рубль"
)

// CBRClient клиент ежедневной XML-выгрузки ЦБ РФ
type CBRClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode string `xml:"CharCode"`
	Name     string `xml:"Name"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// NewCBRClient создает клиента ЦБ
func NewCBRClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *CBRClient {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = "https://www.cbr.ru/scripts/XML_daily.asp"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CBRClient{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchDaily загружает курсы за дату; nil означает последнюю опубликованную дату.
// Наблюдения датируются датой из выгрузки, а не запрошенной.
func (c *CBRClient) FetchDaily(ctx context.Context, date *datekey.Key) ([]storages.Observation, error) {
	endpoint := c.baseURL
	if date != nil {
		endpoint = fmt.Sprintf("%s?date_req=%s", c.baseURL, url.QueryEscape(date.Display()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charset.NewReaderLabel

	var payload valCurs
	if err := decoder.Decode(&payload); err != nil {
		return nil, apperrors.NewFormatError("failed to decode feed: %v", err)
	}

	observations, err := parseValCurs(payload)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":   endpoint,
		"currencies": len(observations),
		"duration":   time.Since(start).String(),
	}).Debug("Fetched CBR feed")

	return observations, nil
}

func parseValCurs(payload valCurs) ([]storages.Observation, error) {
	// ЦБ пишет дату через точку: 05.03.2024
	date, err := datekey.ParseDisplay(strings.ReplaceAll(payload.Date, ".", "/"))
	if err != nil {
		return nil, err
	}

	if len(payload.Valutes) == 0 {
		return nil, apperrors.NewNotFoundError("feed has no rates for %s", date)
	}

	observations := make([]storages.Observation, 0, len(payload.Valutes)+1)
	for _, v := range payload.Valutes {
		value, err := ParseDecimal(v.Value)
		if err != nil {
			return nil, err
		}
		nominal, err := ParseDecimal(v.Nominal)
		if err != nil {
			return nil, err
		}

		observations = append(observations, storages.Observation{
			Date:           date,
			CurrencyCode:   strings.ToUpper(strings.TrimSpace(v.CharCode)),
			CurrencyName:   strings.TrimSpace(v.Name),
			NumeratorValue: value,
			Nominal:        nominal,
		})
	}

	observations = append(observations, storages.Observation{
		Date:           date,
		CurrencyCode:   BaseCurrency,
		CurrencyName:   BaseCurrencyName,
		NumeratorValue: 1,
		Nominal:        1,
	})

	return observations, nil
}

// ParseDecimal разбирает число с запятой в качестве десятичного разделителя
func ParseDecimal(s string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, apperrors.NewFormatError("invalid number %q", s)
	}
	return d.InexactFloat64(), nil
}
