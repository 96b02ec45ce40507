// Package worker handles accountant notification deliveries consumed from
// the broker.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"

	"bookkeep/internal/amqp"
	applog "bookkeep/internal/log"
)

// DeliveryWorker turns consumed notification messages into accountant-facing
// deliveries. Today delivery means a structured log line; this is the seam
// where a real channel (email, push, in-app feed) plugs in.
type DeliveryWorker struct {
	processed atomic.Int64
}

func NewDeliveryWorker() *DeliveryWorker {
	return &DeliveryWorker{}
}

// HandleNotification processes one consumed notification message.
func (w *DeliveryWorker) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	slog.InfoContext(ctx, "Delivering accountant notification",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldCompany, msg.CompanyName,
		applog.FieldStore, msg.StoreName,
		applog.FieldEntryDate, msg.Date,
		applog.FieldTotalCents, msg.TotalCents,
		applog.FieldSeq, msg.Seq)
	w.processed.Add(1)
	return nil
}

// Processed reports how many notifications have been delivered.
func (w *DeliveryWorker) Processed() int64 {
	return w.processed.Load()
}
