// Package rpc отдаёт шаблоны миров по gRPC.
//
// Сервис описан вручную через grpc.ServiceDesc. Запросы и ответы это
// стандартные типы protobuf (wrapperspb.Int64Value, structpb.Struct),
// поэтому генерация .pb.go не требуется.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/storage"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldservice"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "worldgen.WorldTemplateService"

	MethodGetTemplate = "/" + ServiceName + "/GetTemplate"
	MethodGetLevel    = "/" + ServiceName + "/GetLevel"
	MethodGetCamp     = "/" + ServiceName + "/GetCamp"
)

// WorldTemplateHandler серверная сторона WorldTemplateService
type WorldTemplateHandler interface {
	GetTemplate(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetLevel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCamp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc описывает WorldTemplateService для grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorldTemplateHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTemplate", Handler: getTemplateHandler},
		{MethodName: "GetLevel", Handler: getLevelHandler},
		{MethodName: "GetCamp", Handler: getCampHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "worldgen/world_template.proto",
}

// WorldTemplateServer реализует WorldTemplateHandler поверх worldservice.Service
type WorldTemplateServer struct {
	service *worldservice.Service
}

// NewWorldTemplateServer создаёт gRPC обработчик
func NewWorldTemplateServer(service *worldservice.Service) *WorldTemplateServer {
	return &WorldTemplateServer{service: service}
}

// NewGRPCServer создаёт grpc.Server с логированием и зарегистрированным сервисом
func NewGRPCServer(service *worldservice.Service, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor)}, opts...)
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&ServiceDesc, NewWorldTemplateServer(service))
	return gs
}

// GetTemplate возвращает шаблон целиком
func (s *WorldTemplateServer) GetTemplate(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	tpl, _, err := s.service.Get(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(tpl)
}

// GetLevel возвращает срез шаблона по уровню: {seed, level}
func (s *WorldTemplateServer) GetLevel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	seed, err := intField(req, "seed")
	if err != nil {
		return nil, err
	}
	level, err := intField(req, "level")
	if err != nil {
		return nil, err
	}

	view, err := s.service.Level(ctx, seed, int(level))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(view)
}

// GetCamp возвращает срез шаблона по лагерю: {seed, ordinal}
func (s *WorldTemplateServer) GetCamp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	seed, err := intField(req, "seed")
	if err != nil {
		return nil, err
	}
	ordinal, err := intField(req, "ordinal")
	if err != nil {
		return nil, err
	}

	view, err := s.service.Camp(ctx, seed, int(ordinal))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(view)
}

// LoggingInterceptor пишет метод, длительность и код ответа
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	if code == codes.Internal || code == codes.Unknown {
		logging.Error("❌ gRPC %s %s за %v: %v", info.FullMethod, code, time.Since(start), err)
	} else {
		logging.Debug("📡 gRPC %s %s за %v", info.FullMethod, code, time.Since(start))
	}
	return resp, err
}

// intField читает целое число из Struct; числа в Struct хранятся как float64
func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "не задано поле %s", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "поле %s должно быть числом", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "поле %s должно быть целым: %v", name, f)
	}
	return int64(f), nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "сериализация ответа: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "преобразование ответа: %v", err)
	}
	return out, nil
}

// toStatus переводит ошибку сервиса в gRPC статус
func toStatus(err error) error {
	switch {
	case errors.Is(err, storage.ErrTemplateNotFound),
		errors.Is(err, worldgen.ErrLevelNotFound),
		errors.Is(err, worldgen.ErrCampNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, sampler.ErrExhausted):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, fmt.Sprintf("внутренняя ошибка: %v", err))
}

func getTemplateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldTemplateHandler).GetTemplate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetTemplate}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldTemplateHandler).GetTemplate(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func getLevelHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldTemplateHandler).GetLevel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetLevel}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldTemplateHandler).GetLevel(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getCampHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldTemplateHandler).GetCamp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetCamp}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldTemplateHandler).GetCamp(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
