package grpc

import (
	"context"
	"fmt"
	"math"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RatesClient обертка над gRPC соединением с сервисом курсов
type RatesClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  *logrus.Logger
}

var _ engine.Querier = (*RatesClient)(nil)

// NewRatesClient создает клиент. Соединение устанавливается лениво,
// поэтому бот стартует и при недоступном сервисе курсов.
func NewRatesClient(address string, timeout time.Duration, logger *logrus.Logger, opts ...grpc.DialOption) (*RatesClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.Dial(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rates service: %w", err)
	}

	logger.Infof("Rates service client configured for %s", address)

	return &RatesClient{
		conn:    conn,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *RatesClient) invoke(ctx context.Context, method string, req interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	in, err := toStruct(req)
	if err != nil {
		return err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, resp); err != nil {
		c.logger.Debugf("Rates service call %s failed: %v", method, err)
		return fromStatus(err)
	}

	return fromStruct(resp, out)
}

// GetCurrent получает курс со статистикой
func (c *RatesClient) GetCurrent(ctx context.Context, code string) (*engine.CurrentRate, error) {
	var current engine.CurrentRate
	if err := c.invoke(ctx, MethodGetCurrent, CurrentRequest{Code: code}, &current); err != nil {
		return nil, err
	}
	return &current, nil
}

// ListCurrencies получает список валют
func (c *RatesClient) ListCurrencies(ctx context.Context) ([]storages.Currency, error) {
	var payload currenciesPayload
	if err := c.invoke(ctx, MethodListCurrencies, ListCurrenciesRequest{}, &payload); err != nil {
		return nil, err
	}
	return payload.Currencies, nil
}

// GetHistory получает историю за последние days дней
func (c *RatesClient) GetHistory(ctx context.Context, code string, days int) ([]engine.HistoryPoint, error) {
	if days < math.MinInt32 || days > math.MaxInt32 {
		return nil, apperrors.NewValidationError("days %d is out of range", days)
	}

	var payload historyPayload
	req := HistoryRequest{Code: code, Days: int32(days)}
	if err := c.invoke(ctx, MethodGetHistory, req, &payload); err != nil {
		return nil, err
	}
	return payload.Points, nil
}

// GetHistoryRange получает историю за диапазон
func (c *RatesClient) GetHistoryRange(ctx context.Context, code string, start, end datekey.Key) ([]engine.HistoryPoint, error) {
	var payload historyPayload
	req := HistoryRangeRequest{
		Code:  code,
		Start: start.Display(),
		End:   end.Display(),
	}
	if err := c.invoke(ctx, MethodGetHistoryRange, req, &payload); err != nil {
		return nil, err
	}
	return payload.Points, nil
}

// ConvertAmount пересчитывает сумму на стороне сервиса
func (c *RatesClient) ConvertAmount(ctx context.Context, from, to string, amount float64) (*engine.ConversionResult, error) {
	// NaN и Inf не кодируются в JSON, поэтому проверяются до отправки
	if err := pkg.ValidateAmount(amount); err != nil {
		return nil, apperrors.NewValidationError("%v, got %g", err, amount)
	}

	var result engine.ConversionResult
	req := ConvertRequest{From: from, To: to, Amount: amount}
	if err := c.invoke(ctx, MethodConvertAmount, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close закрывает соединение с gRPC сервером
func (c *RatesClient) Close() error {
	if c.conn != nil {
		c.logger.Info("Closing connection to rates service")
		return c.conn.Close()
	}
	return nil
}

// fromStatus восстанавливает ошибку движка из статуса gRPC
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var kind apperrors.Kind
	switch st.Code() {
	case codes.InvalidArgument:
		kind = apperrors.KindValidation
	case codes.NotFound:
		kind = apperrors.KindNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		kind = apperrors.KindStoreUnavailable
	default:
		kind = apperrors.KindInternal
	}
	return apperrors.FromKind(kind, st.Message())
}
