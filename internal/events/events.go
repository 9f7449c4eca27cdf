// Package events publishes domain events about trades and wallet activity.
package events

import (
	"context"
	"sync"
	"time"
)

// Type names an event
type Type string

const (
	TradeOpened       Type = "trade.opened"
	TradeClosed       Type = "trade.closed"
	TradeCancelled    Type = "trade.cancelled"
	TradeOverride     Type = "trade.admin_override"
	TradeSwapAccrued  Type = "trade.swap_accrued"
	WalletTransaction Type = "wallet.transaction"
)

// Event is one published message. Key orders events of the same entity
// onto the same partition.
type Event struct {
	Type    Type        `json:"type"`
	Key     string      `json:"key"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload"`
}

// New stamps an event with the current time
func New(typ Type, key string, payload interface{}) Event {
	return Event{Type: typ, Key: key, Time: time.Now().UTC(), Payload: payload}
}

// Publisher sends events to subscribers outside the process
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Nop drops every event. Used when kafka is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
func (Nop) Close() error                            { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of typ
func (r *Recorder) OfType(typ Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
