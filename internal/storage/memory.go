package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/planner-bot/internal/models"
)

// MemoryJournal keeps deliveries in process memory.
type MemoryJournal struct {
	mu         sync.RWMutex
	deliveries map[int64][]models.Delivery
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		deliveries: make(map[int64][]models.Delivery),
	}
}

func (j *MemoryJournal) RecordDelivery(ctx context.Context, d models.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.deliveries[d.ChatID] = append(j.deliveries[d.ChatID], d)
	return nil
}

func (j *MemoryJournal) RecentDeliveries(ctx context.Context, chatID int64, limit int) ([]models.Delivery, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	list := j.deliveries[chatID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}

	result := make([]models.Delivery, 0, limit)
	for i := len(list) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, list[i])
	}
	return result, nil
}

func (j *MemoryJournal) Close() error {
	// Nothing to close for in-memory journal
	return nil
}
