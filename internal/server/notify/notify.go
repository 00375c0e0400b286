// Package notify hands verification and reset tokens to the mail/SMS
// workers. Delivery itself happens out of process; a message counts as
// sent once the broker accepted it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

const (
	EmailQueue = "email_jobs"
	SMSQueue   = "sms_jobs"
)

type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePhoneVerification Purpose = "phone_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

type Message struct {
	Destination string  `json:"destination"`
	Token       string  `json:"token"`
	Purpose     Purpose `json:"purpose"`
	Channel     Channel `json:"channel"`
}

// Dispatcher sends a message over its channel.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher is the broker side of QueueDispatcher; RabbitClient satisfies it.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// QueueDispatcher routes messages to the email or SMS job queue.
type QueueDispatcher struct {
	pub    Publisher
	logger logging.Logger
}

func NewQueueDispatcher(pub Publisher, l logging.Logger) *QueueDispatcher {
	return &QueueDispatcher{pub: pub, logger: l.With("module", "notify")}
}

func (d *QueueDispatcher) Send(ctx context.Context, msg Message) error {
	queue := EmailQueue
	if msg.Channel == ChannelSMS {
		queue = SMSQueue
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationDeliveryFailed, err)
	}
	if err := d.pub.Publish(ctx, queue, body); err != nil {
		d.logger.Error(ctx, "notification publish failed", "queue", queue, "purpose", msg.Purpose, "error", err)
		return fmt.Errorf("%w: %v", common.ErrNotificationDeliveryFailed, err)
	}
	d.logger.Debug(ctx, "notification queued", "queue", queue, "purpose", msg.Purpose)
	return nil
}

// LogDispatcher only logs. Used when no broker is configured.
type LogDispatcher struct {
	logger logging.Logger
}

func NewLogDispatcher(l logging.Logger) *LogDispatcher {
	return &LogDispatcher{logger: l.With("module", "notify")}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	d.logger.Warn(ctx, "no notification broker configured, message dropped",
		"channel", msg.Channel, "purpose", msg.Purpose)
	return nil
}
