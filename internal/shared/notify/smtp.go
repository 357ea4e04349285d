package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"pearlbox/internal/config"
	"pearlbox/pkg/logging"
)

// SMTPNotifier 通过 SMTP 发送邮件
type SMTPNotifier struct {
	cfg config.MailConfig
	log *logging.Logger
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier 创建 SMTP 发送器
func NewSMTPNotifier(cfg config.MailConfig, log *logging.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail sender is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{cfg: cfg, log: log}, nil
}

func (n *SMTPNotifier) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}
	if n.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	return opts
}

// buildMsg 构建 MIME 邮件
func (n *SMTPNotifier) buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", n.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// Send 每次发送建立新连接；下单频率低，不维护长连接
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	m, err := n.buildMsg(msg)
	if err != nil {
		n.log.MailLog(string(msg.Kind), msg.To, err)
		return deliveryError(msg, err)
	}

	client, err := mail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		n.log.MailLog(string(msg.Kind), msg.To, err)
		return deliveryError(msg, err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		n.log.MailLog(string(msg.Kind), msg.To, err)
		return deliveryError(msg, err)
	}

	n.log.MailLog(string(msg.Kind), msg.To, nil)
	return nil
}
