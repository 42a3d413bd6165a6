package models

import "time"

// DeliveryKind tells which fire path produced a delivery.
type DeliveryKind string

const (
	DeliveryReminder       DeliveryKind = "reminder"
	DeliveryEventBroadcast DeliveryKind = "event_broadcast"
	DeliveryEventPersonal  DeliveryKind = "event_personal"
)

// Delivery is a journal entry for one notification attempt.
type Delivery struct {
	ID          string       `json:"id"`
	Kind        DeliveryKind `json:"kind"`
	EntityID    int64        `json:"entity_id"`
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	DeliveredAt time.Time    `json:"delivered_at"`
	Error       string       `json:"error,omitempty"`
}

// Failed reports whether the sink rejected the delivery.
func (d Delivery) Failed() bool {
	return d.Error != ""
}
