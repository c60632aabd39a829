package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/order"
	"github.com/example/bistro/pkg/repository"
)

func newTestClient(t *testing.T) *OrderClient {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := repository.OpenDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() { _ = repository.CloseDatabase(db) })

	svc := order.NewService(repository.NewOrderStore(db), repository.NewMenuStore(db), logger)
	srv := NewOrderServer(svc, logger).NewServer()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet", logger,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOrderService_RoundTrip(t *testing.T) {
	ctx := testCtx(t)
	client := newTestClient(t)

	created, err := client.CreateOrder(ctx, order.Customer{Name: "Jane Doe", Phone: "555-0100"}, []order.LineInput{
		{MenuItemID: "3", MenuItemName: "Grilled Salmon", Quantity: 2, Price: decimal.RequireFromString("24.99")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "49.98", created.TotalPrice.StringFixed(2))
	require.Len(t, created.Items, 1)
	assert.Equal(t, "Grilled Salmon", created.Items[0].MenuItemName)
	assert.Equal(t, 2, created.Items[0].Quantity)

	got, err := client.GetOrderByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "555-0100", got.CustomerPhone)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	completed, err := client.ListOrders(ctx, "completed")
	require.NoError(t, err)
	assert.Empty(t, completed)

	updated, err := client.UpdateOrderStatus(ctx, created.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	completed, err = client.ListOrders(ctx, "completed")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, created.ID, completed[0].ID)

	all, err := client.ListOrders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrderService_ValidationCarriesFields(t *testing.T) {
	client := newTestClient(t)

	_, err := client.CreateOrder(testCtx(t), order.Customer{Name: " "}, nil)
	require.True(t, apperr.IsValidation(err))

	var fields []string
	for _, v := range apperr.ViolationsOf(err) {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"customer_name", "items"}, fields)
}

func TestOrderService_NotFoundAndBadStatus(t *testing.T) {
	ctx := testCtx(t)
	client := newTestClient(t)

	_, err := client.GetOrderByID(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))

	_, err = client.UpdateOrderStatus(ctx, "missing", "shipped")
	assert.True(t, apperr.IsValidation(err))

	_, err = client.ListOrders(ctx, "shipped")
	assert.True(t, apperr.IsValidation(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{apperr.Invalid("status", "bad"), codes.InvalidArgument},
		{apperr.NotFound("order", "x"), codes.NotFound},
		{apperr.Persistence("create order", errors.New("disk full")), codes.Internal},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}

func TestPersistenceMessageHidesCause(t *testing.T) {
	err := toStatus(apperr.Persistence("create order", errors.New("dsn=secret")))
	assert.Equal(t, "failed to create order", status.Convert(err).Message())
	assert.True(t, apperr.IsPersistence(fromStatus(err)))
}
