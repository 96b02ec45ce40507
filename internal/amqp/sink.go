package amqp

import (
	"context"

	"bookkeep/internal/core"
)

// Sink adapts the AMQP client to the notify.Sink delivery port.
type Sink struct {
	client *Client
}

func NewSink(client *Client) *Sink {
	return &Sink{client: client}
}

func (s *Sink) Notify(ctx context.Context, n core.Notification) error {
	return s.client.PublishNotification(ctx, NewNotificationMessage(n))
}
