package grpc

import (
	"context"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/storages"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RatesServer реализует gRPC сервис RatesService поверх движка
type RatesServer struct {
	querier engine.Querier
	logger  *logrus.Logger
}

// NewRatesServer создает новый экземпляр RatesServer
func NewRatesServer(querier engine.Querier, logger *logrus.Logger) *RatesServer {
	return &RatesServer{
		querier: querier,
		logger:  logger,
	}
}

// NewServer создает grpc.Server с сервисом курсов, health-сервисом и логированием
func NewServer(querier engine.Querier, logger *logrus.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(LoggingInterceptor(logger)),
	)

	RegisterRatesServiceServer(srv, NewRatesServer(querier, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	return srv
}

type currenciesPayload struct {
	Currencies []storages.Currency `json:"currencies"`
}

type historyPayload struct {
	Points []engine.HistoryPoint `json:"points"`
}

// GetCurrent возвращает текущий курс со статистикой
func (s *RatesServer) GetCurrent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in CurrentRequest
	if err := decodeRequest(req, MethodGetCurrent, &in); err != nil {
		return nil, toStatus(err)
	}

	current, err := s.querier.GetCurrent(ctx, in.Code)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(current)
}

// ListCurrencies возвращает валюты на последнюю дату
func (s *RatesServer) ListCurrencies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ListCurrenciesRequest
	if err := decodeRequest(req, MethodListCurrencies, &in); err != nil {
		return nil, toStatus(err)
	}

	currencies, err := s.querier.ListCurrencies(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(currenciesPayload{Currencies: currencies})
}

// GetHistory возвращает историю за последние days дней
func (s *RatesServer) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in HistoryRequest
	if err := decodeRequest(req, MethodGetHistory, &in); err != nil {
		return nil, toStatus(err)
	}

	points, err := s.querier.GetHistory(ctx, in.Code, int(in.Days))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(historyPayload{Points: points})
}

// GetHistoryRange возвращает историю за диапазон dd/mm/yyyy
func (s *RatesServer) GetHistoryRange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in HistoryRangeRequest
	if err := decodeRequest(req, MethodGetHistoryRange, &in); err != nil {
		return nil, toStatus(err)
	}

	start, err := datekey.ParseDisplay(in.Start)
	if err != nil {
		return nil, toStatus(err)
	}
	end, err := datekey.ParseDisplay(in.End)
	if err != nil {
		return nil, toStatus(err)
	}

	points, err := s.querier.GetHistoryRange(ctx, in.Code, start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(historyPayload{Points: points})
}

// ConvertAmount пересчитывает сумму
func (s *RatesServer) ConvertAmount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ConvertRequest
	if err := decodeRequest(req, MethodConvertAmount, &in); err != nil {
		return nil, toStatus(err)
	}

	result, err := s.querier.ConvertAmount(ctx, in.From, in.To, in.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func encode(v interface{}) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus переводит ошибку движка в статус gRPC
func toStatus(err error) error {
	code := codes.Internal
	switch apperrors.KindOf(err) {
	case apperrors.KindFormat, apperrors.KindValidation:
		code = codes.InvalidArgument
	case apperrors.KindNotFound:
		code = codes.NotFound
	case apperrors.KindStoreUnavailable:
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}

// LoggingInterceptor создает interceptor для логирования gRPC запросов
func LoggingInterceptor(log *logrus.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"duration": time.Since(start).String(),
			"status":   status.Code(err).String(),
		})
		switch status.Code(err) {
		case codes.OK:
			entry.Info("gRPC request")
		case codes.Internal, codes.Unavailable:
			entry.WithError(err).Error("gRPC request failed")
		default:
			entry.WithError(err).Warn("gRPC request rejected")
		}

		return resp, err
	}
}
