package events

import (
	"sync"
	"time"
)

// Envelope is the payload shape delivered to subscribers.
type Envelope struct {
	Topic Event     `json:"topic"`
	At    time.Time `json:"at"`
	Data  any       `json:"data"`
}

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan Envelope
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan Envelope)}
}

// Subscribe registers a listener for an event and returns the channel and an unsubscribe function.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Envelope, buffer)
	b.subs[e] = append(b.subs[e], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// SubscribeAll registers one listener across every known topic. The merged
// channel closes after the returned unsubscribe function runs.
func (b *Bus) SubscribeAll(buffer int) (<-chan Envelope, func()) {
	merged := make(chan Envelope, buffer)
	var wg sync.WaitGroup
	unsubs := make([]func(), 0, len(All()))

	for _, topic := range All() {
		ch, unsub := b.Subscribe(topic, buffer)
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(ch <-chan Envelope) {
			defer wg.Done()
			for env := range ch {
				select {
				case merged <- env:
				default:
				}
			}
		}(ch)
	}

	cancel := func() {
		for _, u := range unsubs {
			u()
		}
		go func() {
			wg.Wait()
			close(merged)
		}()
	}
	return merged, cancel
}

// Publish fan-outs the payload to subscribers without blocking the caller.
func (b *Bus) Publish(e Event, payload any) {
	env := Envelope{Topic: e, At: time.Now(), Data: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- env:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
