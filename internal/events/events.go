// Package events records the account lifecycle: signups, profile updates and
// login attempts. Events never carry passwords or password hashes.
package events

import (
	"context"
	"time"
)

// Kind names an account event.
type Kind string

const (
	AccountCreated     Kind = "account.created"
	AccountUpdated     Kind = "account.updated"
	AccountLogin       Kind = "account.login"
	AccountLoginFailed Kind = "account.login_failed"
)

// Event is one account lifecycle record.
type Event struct {
	Kind     Kind      `json:"kind"`
	UserID   string    `json:"user_id,omitempty"`
	Username string    `json:"username"`
	Fields   []string  `json:"fields,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers events. Delivery failures are handled by the publisher
// itself and never surface to the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Multi fans an event out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}
