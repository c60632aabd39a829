package grpc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/bistro/pkg/discovery"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/order"
)

// OrderClient calls a remote order service. Errors come back as the same
// kinds the service produces locally.
type OrderClient struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

// Dial connects to target without blocking; the first call establishes
// the connection.
func Dial(target string, logger *zap.Logger, opts ...grpc.DialOption) (*OrderClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to order service: %w", err)
	}
	return &OrderClient{conn: conn, logger: logger.Named("order-client")}, nil
}

// Resolver finds running instances of a named service.
type Resolver interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

// DialDiscovered resolves serviceName and connects to the first instance,
// falling back to fallback when discovery finds nothing.
func DialDiscovered(ctx context.Context, r Resolver, serviceName, fallback string, logger *zap.Logger) (*OrderClient, error) {
	target := fallback
	if r != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		instances, err := r.Discover(ctx, serviceName)
		if err == nil && len(instances) > 0 {
			target = instances[0].Addr()
			logger.Info("Discovered order service", zap.String("address", target))
		} else {
			logger.Info("Using default address for order service", zap.String("address", target), zap.Error(err))
		}
	}
	if target == "" {
		return nil, fmt.Errorf("no address for %s", serviceName)
	}
	return Dial(target, logger)
}

func (c *OrderClient) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out); err != nil {
		return fromStatus(err)
	}
	if err := fromStruct(out, resp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func (c *OrderClient) CreateOrder(ctx context.Context, customer order.Customer, lines []order.LineInput) (*models.Order, error) {
	var o models.Order
	if err := c.invoke(ctx, "CreateOrder", CreateOrderRequest{Customer: customer, Items: lines}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *OrderClient) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := c.invoke(ctx, "GetOrder", GetOrderRequest{ID: id}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *OrderClient) ListOrders(ctx context.Context, status string) ([]models.Order, error) {
	var resp ListOrdersResponse
	if err := c.invoke(ctx, "ListOrders", ListOrdersRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *OrderClient) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	var o models.Order
	if err := c.invoke(ctx, "UpdateOrderStatus", UpdateOrderStatusRequest{ID: id, Status: status}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *OrderClient) Close() error {
	return c.conn.Close()
}
