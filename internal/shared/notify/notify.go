// Package notify 订单邮件通知
//
// 下单事务提交后发送两封邮件：买家确认与管理员提醒。
// 发送失败不影响已提交的订单，只记录日志并向调用方返回警告。
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"pearlbox/internal/shared/model"
)

// ErrDeliveryFailed 邮件投递失败
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Kind 邮件类型
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindAdminAlert        Kind = "admin_alert"
)

// Message 待发送的邮件
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Body    string
}

// Notifier 邮件发送接口
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// DateLayout 邮件中订单时间格式
const DateLayout = "2006-01-02 15:04:05"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`Dear {{.User.Username}},

Thank you for your order!

Order ID: {{.Order.ID}}
Product: {{.Product.Name}}
Quantity: {{.Order.Quantity}}
Order Date: {{.Date}}

We will notify you once your order is shipped.

Best regards,
Pearl Box Team
`))

var adminAlertTmpl = template.Must(template.New("admin_alert").Parse(`Hello Admin,

A new order has been placed.

Order ID: {{.Order.ID}}
User: {{.User.Username}} ({{.User.Email}})
Product: {{.Product.Name}}
Quantity: {{.Order.Quantity}}
Order Date: {{.Date}}

Please process this order accordingly.

Best regards,
Pearl Box Website
`))

type orderData struct {
	User    *model.User
	Product *model.Product
	Order   *model.Order
	Date    string
}

func render(tmpl *template.Template, user *model.User, product *model.Product, order *model.Order) string {
	var buf bytes.Buffer
	// 模板字段固定，执行不会失败
	_ = tmpl.Execute(&buf, orderData{
		User:    user,
		Product: product,
		Order:   order,
		Date:    order.OrderDate.In(time.UTC).Format(DateLayout),
	})
	return buf.String()
}

// OrderConfirmation 买家订单确认邮件
func OrderConfirmation(user *model.User, product *model.Product, order *model.Order) Message {
	return Message{
		Kind:    KindOrderConfirmation,
		To:      user.Email,
		Subject: "Order Confirmation - Pearl Box",
		Body:    render(confirmationTmpl, user, product, order),
	}
}

// AdminAlert 管理员新订单提醒邮件
func AdminAlert(adminEmail string, user *model.User, product *model.Product, order *model.Order) Message {
	return Message{
		Kind:    KindAdminAlert,
		To:      adminEmail,
		Subject: "New Order Received - Pearl Box",
		Body:    render(adminAlertTmpl, user, product, order),
	}
}

// deliveryError 包装单封邮件的投递失败
func deliveryError(msg Message, err error) error {
	return fmt.Errorf("%w: %s to %s: %v", ErrDeliveryFailed, msg.Kind, msg.To, err)
}
