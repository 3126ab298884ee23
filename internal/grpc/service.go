package grpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gw-currency-rates/internal/apperrors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName полное имя сервиса курсов
const ServiceName = "rates.v1.RatesService"

// Имена методов
const (
	MethodGetCurrent      = "GetCurrent"
	MethodListCurrencies  = "ListCurrencies"
	MethodGetHistory      = "GetHistory"
	MethodGetHistoryRange = "GetHistoryRange"
	MethodConvertAmount   = "ConvertAmount"
)

// Запросы rates.v1 (см. proto/rates/v1/rates.proto).
// На проводе передаются как google.protobuf.Struct.

// CurrentRequest запрос GetCurrent
type CurrentRequest struct {
	Code string `json:"code"`
}

// ListCurrenciesRequest запрос ListCurrencies без полей
type ListCurrenciesRequest struct{}

// HistoryRequest запрос GetHistory
type HistoryRequest struct {
	Code string `json:"code"`
	Days int32  `json:"days"`
}

// HistoryRangeRequest запрос GetHistoryRange, даты в формате dd/mm/yyyy
type HistoryRangeRequest struct {
	Code  string `json:"code"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// ConvertRequest запрос ConvertAmount
type ConvertRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// RatesServiceServer серверная сторона rates.v1.RatesService.
// Запросы и ответы передаются как google.protobuf.Struct.
type RatesServiceServer interface {
	GetCurrent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCurrencies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetHistoryRange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ConvertAmount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv RatesServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RatesServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RatesServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RatesServiceDesc описание сервиса для grpc.Server.RegisterService
var RatesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RatesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodGetCurrent, RatesServiceServer.GetCurrent),
		methodDesc(MethodListCurrencies, RatesServiceServer.ListCurrencies),
		methodDesc(MethodGetHistory, RatesServiceServer.GetHistory),
		methodDesc(MethodGetHistoryRange, RatesServiceServer.GetHistoryRange),
		methodDesc(MethodConvertAmount, RatesServiceServer.ConvertAmount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rates/v1/rates.proto",
}

// RegisterRatesServiceServer регистрирует реализацию на сервере
func RegisterRatesServiceServer(s grpc.ServiceRegistrar, srv RatesServiceServer) {
	s.RegisterService(&RatesServiceDesc, srv)
}

// FullMethod возвращает полное имя метода: /rates.v1.RatesService/GetCurrent
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// toStruct кодирует JSON-представление значения в Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return structpb.NewStruct(fields)
}

// decodeRequest строго разбирает Struct в типизированный запрос:
// лишние поля и значения не того типа дают FormatError.
func decodeRequest(req *structpb.Struct, method string, v interface{}) error {
	if req == nil {
		req = &structpb.Struct{}
	}

	raw, err := protojson.Marshal(req)
	if err != nil {
		return apperrors.NewFormatError("malformed %s request: %v", method, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.NewFormatError("malformed %s request: %v", method, err)
	}
	return nil
}

// fromStruct декодирует Struct в значение через JSON
func fromStruct(s *structpb.Struct, v interface{}) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("failed to marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode struct: %w", err)
	}
	return nil
}
