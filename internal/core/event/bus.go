package event

import (
	"reflect"
	"slices"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during tick N are
// dispatched at the start of tick N+1, after SwapBuffers. Emit may be called
// from concurrently running systems.
type Bus struct {
	mu       sync.Mutex
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event into the back buffer (dispatched next tick).
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.back[t] = append(b.back[t], event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		clear(b.back[k])
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
// Handlers run on the calling goroutine, outside the bus lock, so they may
// Emit.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	type batch struct {
		events   []any
		handlers []func(any)
	}
	batches := make([]batch, 0, len(b.front))
	for t, events := range b.front {
		if len(events) == 0 || len(b.handlers[t]) == 0 {
			continue
		}
		batches = append(batches, batch{
			events:   slices.Clone(events),
			handlers: slices.Clone(b.handlers[t]),
		})
	}
	b.mu.Unlock()

	for _, bt := range batches {
		for _, ev := range bt.events {
			for _, h := range bt.handlers {
				h(ev)
			}
		}
	}
}

// Pending returns the number of events of type T waiting in the back buffer.
func Pending[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.back[reflect.TypeOf((*T)(nil)).Elem()])
}
