package order

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/shared/metrics"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/notify"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/shared/storage/factory"
	"pearlbox/internal/shared/storage/repository"
	"pearlbox/internal/storefront/auth"
	"pearlbox/pkg/logging"
)

const adminEmail = "admin@pearlbox.com"

type fixture struct {
	store    *repository.Store
	recorder *notify.Recorder
	metrics  *metrics.Metrics
	svc      *Service
	user     *model.User
	product  *model.Product
}

func setup(t *testing.T, stock int) *fixture {
	t.Helper()
	store, err := factory.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	user := &model.User{Username: "alice", Email: "a@x.com", PasswordHash: "x", Role: model.UserRoleCustomer}
	require.NoError(t, store.CreateUser(ctx, user))
	product := &model.Product{
		Name:        "P",
		Price:       decimal.RequireFromString("9.99"),
		Description: "pearl",
		Category:    model.CategoryRings,
		Stock:       stock,
	}
	require.NoError(t, store.CreateProduct(ctx, product))

	rec := notify.NewRecorder()
	m := metrics.New()
	return &fixture{
		store:    store,
		recorder: rec,
		metrics:  m,
		svc:      NewService(store, rec, adminEmail, m, logging.Discard()),
		user:     user,
		product:  product,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func (f *fixture) orders(t *testing.T) []*model.OrderView {
	t.Helper()
	views, err := f.store.ListOrdersByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	return views
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{" 3 ", 3, false},
		{"1", 1, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseQuantity(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlace_Success(t *testing.T) {
	f := setup(t, 10)

	placement, err := f.svc.Place(context.Background(), f.user, f.product.ID, 2)
	require.NoError(t, err)
	assert.NoError(t, placement.NotifyErr)
	assert.Equal(t, model.OrderStatusPending, placement.Order.Status)
	assert.Equal(t, "P", placement.Product.Name)

	assert.Equal(t, 8, f.stock(t))
	orders := f.orders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, 2, orders[0].Quantity)

	msgs := f.recorder.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, notify.KindOrderConfirmation, msgs[0].Kind)
	assert.Equal(t, "a@x.com", msgs[0].To)
	assert.Equal(t, notify.KindAdminAlert, msgs[1].Kind)
	assert.Equal(t, adminEmail, msgs[1].To)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OrdersPlaced))
}

func TestPlace_InsufficientStock(t *testing.T) {
	f := setup(t, 1)

	_, err := f.svc.Place(context.Background(), f.user, f.product.ID, 2)
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)

	assert.Equal(t, 1, f.stock(t))
	assert.Empty(t, f.orders(t))
	assert.Zero(t, f.recorder.Attempts())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OrderRejections.WithLabelValues(metrics.ReasonInsufficientStock)))
}

func TestPlace_Rejections(t *testing.T) {
	f := setup(t, 5)
	ctx := context.Background()

	_, err := f.svc.Place(ctx, nil, f.product.ID, 1)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = f.svc.Place(ctx, f.user, f.product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.svc.Place(ctx, f.user, 9999, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, 5, f.stock(t))
	assert.Empty(t, f.orders(t))
	assert.Zero(t, f.recorder.Attempts())
}

func TestPlace_NotificationFailureKeepsOrder(t *testing.T) {
	f := setup(t, 3)
	f.recorder.FailFor[adminEmail] = errors.New("smtp down")

	placement, err := f.svc.Place(context.Background(), f.user, f.product.ID, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, placement.NotifyErr, notify.ErrDeliveryFailed)
	assert.ErrorContains(t, placement.NotifyErr, "smtp down")

	// 两封都尝试过，订单与库存已提交
	assert.Equal(t, 2, f.recorder.Attempts())
	assert.Equal(t, 2, f.stock(t))
	assert.Len(t, f.orders(t), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("admin_alert", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("order_confirmation", "sent")))
}

func TestPlace_WithoutMetricsOrLogger(t *testing.T) {
	f := setup(t, 3)
	svc := NewService(f.store, notifierFunc(func(ctx context.Context, msg notify.Message) error {
		return ctx.Err()
	}), adminEmail, nil, nil)

	placement, err := svc.Place(context.Background(), f.user, f.product.ID, 1)
	require.NoError(t, err)
	assert.NoError(t, placement.NotifyErr)
}

type notifierFunc func(ctx context.Context, msg notify.Message) error

func (fn notifierFunc) Send(ctx context.Context, msg notify.Message) error { return fn(ctx, msg) }

func TestMarkDelivered(t *testing.T) {
	f := setup(t, 3)
	ctx := context.Background()

	placement, err := f.svc.Place(ctx, f.user, f.product.ID, 1)
	require.NoError(t, err)

	changed, err := f.svc.MarkDelivered(ctx, placement.Order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.svc.MarkDelivered(ctx, placement.Order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	o, err := f.store.GetOrder(ctx, placement.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, o.Status)

	_, err = f.svc.MarkDelivered(ctx, 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
