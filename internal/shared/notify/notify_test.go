package notify

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/config"
	"pearlbox/internal/shared/model"
	"pearlbox/pkg/logging"
)

func fixture() (*model.User, *model.Product, *model.Order) {
	user := &model.User{ID: 1, Username: "alice", Email: "a@x.com"}
	product := &model.Product{ID: 3, Name: "Pearl Necklace"}
	order := &model.Order{
		ID:        17,
		UserID:    1,
		ProductID: 3,
		Quantity:  2,
		Status:    model.OrderStatusPending,
		OrderDate: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
	return user, product, order
}

func TestOrderConfirmation(t *testing.T) {
	msg := OrderConfirmation(fixture())

	assert.Equal(t, KindOrderConfirmation, msg.Kind)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Order Confirmation - Pearl Box", msg.Subject)
	assert.Contains(t, msg.Body, "Dear alice,")
	assert.Contains(t, msg.Body, "Order ID: 17\n")
	assert.Contains(t, msg.Body, "Product: Pearl Necklace\n")
	assert.Contains(t, msg.Body, "Quantity: 2\n")
	assert.Contains(t, msg.Body, "Order Date: 2024-05-06 07:08:09\n")
	assert.Contains(t, msg.Body, "Pearl Box Team")
}

func TestAdminAlert(t *testing.T) {
	user, product, order := fixture()
	msg := AdminAlert("admin@pearlbox.com", user, product, order)

	assert.Equal(t, KindAdminAlert, msg.Kind)
	assert.Equal(t, "admin@pearlbox.com", msg.To)
	assert.Equal(t, "New Order Received - Pearl Box", msg.Subject)
	assert.Contains(t, msg.Body, "User: alice (a@x.com)\n")
	assert.Contains(t, msg.Body, "Order ID: 17\n")
	assert.Contains(t, msg.Body, "Please process this order accordingly.")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.FailFor["down@x.com"] = errors.New("mailbox unavailable")
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, Message{To: "a@x.com"}))
	err := r.Send(ctx, Message{Kind: KindAdminAlert, To: "down@x.com"})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorContains(t, err, "mailbox unavailable")

	assert.Equal(t, 2, r.Attempts())
	assert.Equal(t, "down@x.com", r.Messages()[1].To)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(logging.Discard())
	assert.NoError(t, n.Send(context.Background(), Message{To: "a@x.com", Subject: "s"}))
}

func TestNewSMTPNotifier_Validation(t *testing.T) {
	_, err := NewSMTPNotifier(config.MailConfig{}, logging.Discard())
	assert.ErrorContains(t, err, "host")

	_, err = NewSMTPNotifier(config.MailConfig{Host: "smtp.local"}, logging.Discard())
	assert.ErrorContains(t, err, "sender")

	n, err := NewSMTPNotifier(config.MailConfig{Host: "smtp.local", From: "shop@x.com"}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 587, n.cfg.Port)
}

func TestSMTPNotifier_BuildMsg(t *testing.T) {
	n, err := NewSMTPNotifier(config.MailConfig{Host: "smtp.local", From: "shop@x.com"}, logging.Discard())
	require.NoError(t, err)

	_, err = n.buildMsg(OrderConfirmation(fixture()))
	assert.NoError(t, err)

	_, err = n.buildMsg(Message{To: "not an address"})
	assert.Error(t, err)
}

func TestSMTPNotifier_SendFailure(t *testing.T) {
	// 占用后立即释放一个端口，保证连接被拒绝
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	n, err := NewSMTPNotifier(config.MailConfig{Host: "127.0.0.1", Port: port, From: "shop@x.com"}, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = n.Send(ctx, OrderConfirmation(fixture()))
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}
