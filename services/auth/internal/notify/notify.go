// Package notify hands SMS and email messages to whatever delivers them.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/snapbuy/pkg/events"
	"github.com/Skotchmaster/snapbuy/pkg/logging"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

type Message struct {
	Channel Channel `json:"channel"`
	From    string  `json:"from,omitempty"`
	To      string  `json:"to"`
	Subject string  `json:"subject,omitempty"`
	Body    string  `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// KafkaSender publishes messages to the notifications topic, where the mail and SMS
// gateways consume them. Delivery to the broker is synchronous so callers see failures.
type KafkaSender struct {
	Pub  events.Publisher
	From string
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("notify: empty recipient")
	}
	if msg.Channel == ChannelEmail && msg.From == "" {
		msg.From = s.From
	}
	return s.Pub.PublishEvent(ctx, events.TopicNotifications, msg.To, msg)
}

// LogSender delivers nothing and only records that a message was due. The body
// carries codes and sign-in links, so it is never logged.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logging.FromContext(ctx).Warn("notification_not_delivered",
		"channel", msg.Channel,
		"to", Mask(msg.To),
		"subject", msg.Subject,
		"body_len", len(msg.Body),
	)
	return nil
}

// Mask hides most of a phone number or an email local part for logs.
func Mask(addr string) string {
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		local := addr[:at]
		if len(local) <= 1 {
			return "*" + addr[at:]
		}
		return local[:1] + strings.Repeat("*", len(local)-1) + addr[at:]
	}
	if len(addr) <= 4 {
		return "****"
	}
	return "****" + addr[len(addr)-4:]
}
