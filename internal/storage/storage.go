package storage

import (
	"context"

	"github.com/xaenox/planner-bot/internal/models"
)

// DeliveryRecorder is the write side of the journal used by fire callbacks.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, d models.Delivery) error
}

// Journal keeps a history of delivered notifications.
type Journal interface {
	DeliveryRecorder
	// RecentDeliveries returns up to limit deliveries for chatID, newest first.
	RecentDeliveries(ctx context.Context, chatID int64, limit int) ([]models.Delivery, error)
	Close() error
}
