package storetest

import (
	"context"
	"sync"
	"time"

	"flightbook/internal/notifications"
)

// Publisher records every published event.
type Publisher struct {
	mu     sync.Mutex
	events []notifications.BookingEvent
	err    error
}

func (p *Publisher) Publish(_ context.Context, event *notifications.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *event)
	return nil
}

func (p *Publisher) Close() error { return nil }

// FailWith makes every following Publish return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns the published events of the given type, all of them when
// eventType is empty.
func (p *Publisher) Events(eventType notifications.EventType) []notifications.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notifications.BookingEvent
	for _, e := range p.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
