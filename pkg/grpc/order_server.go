package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/order"
)

const serviceName = "bistro.v1.OrderService"

// OrderService is the part of the order service exposed over gRPC.
type OrderService interface {
	CreateOrder(ctx context.Context, customer order.Customer, lines []order.LineInput) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, status string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error)
}

type CreateOrderRequest struct {
	order.Customer
	Items []order.LineInput `json:"items"`
}

type GetOrderRequest struct {
	ID string `json:"id"`
}

type ListOrdersRequest struct {
	Status string `json:"status,omitempty"`
}

type ListOrdersResponse struct {
	Orders []models.Order `json:"orders"`
}

type UpdateOrderStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type orderServiceServer interface {
	createOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	getOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	listOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	updateOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unary(method string, call func(orderServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(orderServiceServer), ctx, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		return interceptor(ctx, in, info, handler)
	}
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*orderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: unary("CreateOrder", orderServiceServer.createOrder)},
		{MethodName: "GetOrder", Handler: unary("GetOrder", orderServiceServer.getOrder)},
		{MethodName: "ListOrders", Handler: unary("ListOrders", orderServiceServer.listOrders)},
		{MethodName: "UpdateOrderStatus", Handler: unary("UpdateOrderStatus", orderServiceServer.updateOrderStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bistro/v1/orders.proto",
}

// OrderServer binds an OrderService to gRPC.
type OrderServer struct {
	svc    OrderService
	logger *zap.Logger
}

func NewOrderServer(svc OrderService, logger *zap.Logger) *OrderServer {
	return &OrderServer{svc: svc, logger: logger.Named("grpc")}
}

// NewServer builds a gRPC server with the order service and reflection
// registered.
func (s *OrderServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor(s.logger))}, opts...)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&orderServiceDesc, s)
	reflection.Register(srv)
	return srv
}

// Serve listens on addr until srv is stopped.
func Serve(srv *grpc.Server, addr string, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	logger.Info("gRPC server started", zap.String("address", addr))
	return srv.Serve(lis)
}

func decode(in *structpb.Struct, dst any) error {
	if err := fromStruct(in, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func (s *OrderServer) createOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreateOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, err := s.svc.CreateOrder(ctx, req.Customer, req.Items)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(o)
}

func (s *OrderServer) getOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, err := s.svc.GetOrderByID(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(o)
}

func (s *OrderServer) listOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListOrdersRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	orders, err := s.svc.ListOrders(ctx, req.Status)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(ListOrdersResponse{Orders: orders})
}

func (s *OrderServer) updateOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req UpdateOrderStatusRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, err := s.svc.UpdateOrderStatus(ctx, req.ID, req.Status)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(o)
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		}
		if status.Code(err) == codes.Internal || status.Code(err) == codes.Unknown {
			logger.Error("gRPC request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("gRPC request", fields...)
		}
		return resp, err
	}
}
