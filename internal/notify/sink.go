// Package notify defines the outbound message boundary of the planner.
package notify

import "context"

// Button is one inline button. Data is an encoded intent.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, row by row.
type Keyboard [][]Button

// Message is a transport-neutral outbound message.
type Message struct {
	ChatID   int64
	Text     string
	Markdown bool
	Keyboard Keyboard
}

// Sink delivers messages. Implementations never retry.
type Sink interface {
	// Send posts msg and returns the id of the created message.
	Send(ctx context.Context, msg Message) (int, error)
	// Edit replaces the text (and keyboard) of a message sent earlier.
	Edit(ctx context.Context, messageID int, msg Message) error
}
