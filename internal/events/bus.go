package events

import (
	"sync"
)

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan SignalEvent
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan SignalEvent)}
}

// Subscribe registers a listener for the given topics and returns the channel
// and an unsubscribe function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe(buffer int, topics ...Event) (<-chan SignalEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan SignalEvent, buffer)
	for _, e := range topics {
		b.subs[e] = append(b.subs[e], ch)
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, e := range topics {
				subs := b.subs[e]
				for i, c := range subs {
					if c == ch {
						b.subs[e] = append(subs[:i], subs[i+1:]...)
						break
					}
				}
			}
			close(ch)
		})
	}

	return ch, unsub
}

// Publish fans out ev to subscribers of ev.Type without blocking.
func (b *Bus) Publish(ev SignalEvent) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.Type] {
		select {
		case ch <- ev:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
