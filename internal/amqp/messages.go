package amqp

import (
	"encoding/json"
	"time"

	"bookkeep/internal/core"
)

// NotificationMessage is the wire form of an accountant notification. It
// carries enough metadata to render an alert; consumers needing the full
// entry fetch it from the ledger API by company.
type NotificationMessage struct {
	CompanyName string    `json:"companyName"`
	StoreName   string    `json:"storeName"`
	Date        string    `json:"date"`
	TotalCents  int64     `json:"totalCents"`
	Seq         uint64    `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewNotificationMessage builds the wire message for a ledger notification.
func NewNotificationMessage(n core.Notification) *NotificationMessage {
	return &NotificationMessage{
		CompanyName: n.Entry.CompanyName,
		StoreName:   n.Entry.StoreName,
		Date:        n.Entry.Date,
		TotalCents:  n.Entry.Total.Cents,
		Seq:         n.Seq,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON creates a message from JSON bytes
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
