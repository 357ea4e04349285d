package notify

import (
	"context"
	"sync"
)

// Recorder 记录所有发送尝试的 Notifier（测试用）
//
// FailFor 中的收件人会返回投递失败
type Recorder struct {
	mu      sync.Mutex
	sent    []Message
	FailFor map[string]error
}

var _ Notifier = (*Recorder)(nil)

// NewRecorder 创建 Recorder
func NewRecorder() *Recorder {
	return &Recorder{FailFor: make(map[string]error)}
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	if err, ok := r.FailFor[msg.To]; ok {
		return deliveryError(msg, err)
	}
	return nil
}

// Messages 返回所有尝试发送的邮件（含失败的）
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Attempts 发送尝试次数
func (r *Recorder) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
