package models

import "time"

// Reminder is a one-shot message delivered to a single chat at FireAt.
type Reminder struct {
	ID     int64     `json:"id"`
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
	FireAt time.Time `json:"fire_at"`
}
