// Package events is a minimal in-process pub/sub bus. The engine publishes
// model-change notifications on it; rendering and transport layers subscribe.
package events

import "sync"

type Topic string

const (
	StatsUpdated   Topic = "statsUpdated"
	BattleDeleted  Topic = "battleDeleted"
	DataImported   Topic = "dataImported"
	HistoryCleared Topic = "historyCleared"
	FiltersApplied Topic = "filtersApplied"
)

type Handler func(payload any)

type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[Topic]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Topic]map[int]Handler)}
}

// Subscribe registers a handler and returns a cancel func that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
		if len(b.handlers[topic]) == 0 {
			delete(b.handlers, topic)
		}
	}
}

// Emit calls every handler subscribed to topic synchronously, in no
// particular order.
func (b *Bus) Emit(topic Topic, payload any) {
	b.mu.Lock()
	hs := make([]Handler, 0, len(b.handlers[topic]))
	for _, h := range b.handlers[topic] {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(payload)
	}
}
