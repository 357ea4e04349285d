package notify

import (
	"context"
	"log/slog"

	"pearlbox/pkg/logging"
)

// LogNotifier 未配置 SMTP 时使用：只把邮件内容写入日志
type LogNotifier struct {
	log *logging.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier 创建日志发送器
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.log.Info("Mail not sent (SMTP disabled)",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	n.log.Debug(msg.Body)
	return nil
}
