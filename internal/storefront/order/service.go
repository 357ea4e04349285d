// Package order 下单流程
//
// 库存扣减与订单写入在存储层同一事务内完成；事务提交后再发送两封通知邮件，
// 邮件失败只作为警告返回，订单保持已提交状态。
package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pearlbox/internal/shared/metrics"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/notify"
	"pearlbox/internal/shared/storage"
	"pearlbox/internal/storefront/auth"
	"pearlbox/pkg/logging"
)

// ErrInvalidQuantity 数量不是正整数
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// notifyTimeout 两封邮件的总超时
const notifyTimeout = 30 * time.Second

// Store 下单流程需要的存储能力
type Store interface {
	PlaceOrder(ctx context.Context, userID, productID int64, quantity int) (*model.Order, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	MarkOrderDelivered(ctx context.Context, id int64) (bool, error)
}

// Service 下单服务
type Service struct {
	store      Store
	notifier   notify.Notifier
	adminEmail string
	metrics    *metrics.Metrics
	log        *logging.Logger
}

// NewService 创建下单服务，metrics 可以为 nil
func NewService(store Store, notifier notify.Notifier, adminEmail string, m *metrics.Metrics, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		store:      store,
		notifier:   notifier,
		adminEmail: adminEmail,
		metrics:    m,
		log:        log.Named("order"),
	}
}

// Placement 下单结果
type Placement struct {
	Order   *model.Order
	Product *model.Product
	// NotifyErr 通知失败的汇总（errors.Join），订单仍然有效
	NotifyErr error
}

// ParseQuantity 解析表单中的数量，留空默认为 1
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil || q < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return q, nil
}

// Place 为用户下单
//
// 返回的错误：auth.ErrUnauthenticated、ErrInvalidQuantity、storage.ErrNotFound、
// storage.ErrInsufficientStock 或存储层的意外错误；这些情况下库存与订单均不变
func (s *Service) Place(ctx context.Context, user *model.User, productID int64, quantity int) (*Placement, error) {
	if user == nil {
		return nil, auth.ErrUnauthenticated
	}
	log := s.log.WithContext(ctx).WithUserID(user.ID).WithProductID(productID)

	if quantity < 1 {
		s.metrics.RecordOrderRejected(metrics.ReasonInvalid)
		return nil, ErrInvalidQuantity
	}

	order, err := s.store.PlaceOrder(ctx, user.ID, productID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInsufficientStock):
			s.metrics.RecordOrderRejected(metrics.ReasonInsufficientStock)
			log.Info("[order] Rejected: insufficient stock", "quantity", quantity)
		case errors.Is(err, storage.ErrNotFound):
			s.metrics.RecordOrderRejected(metrics.ReasonNotFound)
			log.Info("[order] Rejected: product not found")
		case errors.Is(err, storage.ErrInvalidQuantity):
			s.metrics.RecordOrderRejected(metrics.ReasonInvalid)
			return nil, ErrInvalidQuantity
		default:
			s.metrics.RecordOrderRejected(metrics.ReasonError)
			log.WithError(err).Error("[order] Failed to place order")
		}
		return nil, err
	}
	s.metrics.RecordOrderPlaced()
	log.WithOrderID(order.ID).Info("[order] Placed", "quantity", quantity)

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil || product == nil {
		// 订单已提交，邮件里只缺商品名
		log.WithError(err).Warn("[order] Could not reload product for notification")
		product = &model.Product{ID: productID}
	}

	return &Placement{
		Order:     order,
		Product:   product,
		NotifyErr: s.notify(ctx, user, product, order),
	}, nil
}

// notify 发送买家确认与管理员提醒，两封互不影响
func (s *Service) notify(ctx context.Context, user *model.User, product *model.Product, order *model.Order) error {
	if s.notifier == nil {
		return nil
	}
	// 请求结束不应中断已提交订单的通知
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	messages := []notify.Message{notify.OrderConfirmation(user, product, order)}
	if s.adminEmail != "" {
		messages = append(messages, notify.AdminAlert(s.adminEmail, user, product, order))
	}

	var errs []error
	for _, msg := range messages {
		err := s.notifier.Send(ctx, msg)
		s.metrics.RecordNotification(string(msg.Kind), err)
		if err != nil {
			s.log.WithOrderID(order.ID).WithError(err).Warn("[order] Notification failed", "kind", msg.Kind, "to", msg.To)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MarkDelivered 标记订单已发货，已发货的订单重复标记返回 changed=false
func (s *Service) MarkDelivered(ctx context.Context, orderID int64) (bool, error) {
	changed, err := s.store.MarkOrderDelivered(ctx, orderID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.WithOrderID(orderID).WithError(err).Error("[order] Failed to mark delivered")
		}
		return false, err
	}
	if changed {
		s.log.WithOrderID(orderID).Info("[order] Marked delivered")
	}
	return changed, nil
}
