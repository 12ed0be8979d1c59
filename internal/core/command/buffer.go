package command

import (
	"fmt"

	"github.com/you-win/bevy/internal/core/ecs"
)

// Buffer is the single-threaded command buffer. It keeps commands in
// enqueue order plus a cursor naming the most recently spawned entity, so
// call sites can chain Spawn(...).With(...).
//
// A Buffer is not safe for concurrent use; share work through Commands.
type Buffer struct {
	alloc      Allocator
	commands   []Command
	current    ecs.EntityID
	hasCurrent bool
}

// NewBuffer returns an empty buffer that reserves identities from alloc.
func NewBuffer(alloc Allocator) *Buffer {
	return &Buffer{alloc: alloc}
}

// Spawn reserves a new identifier, queues SpawnAsEntity for it and moves
// the cursor to it.
func (b *Buffer) Spawn(components ecs.Bundle) *Buffer {
	if b.alloc == nil {
		panic("command: buffer has no allocator, use NewBuffer")
	}
	return b.SpawnAsEntity(b.alloc.Reserve(), components)
}

// SpawnAsEntity queues SpawnAsEntity for an already reserved identifier and
// moves the cursor to it.
func (b *Buffer) SpawnAsEntity(e ecs.EntityID, components ecs.Bundle) *Buffer {
	b.current = e
	b.hasCurrent = true
	b.commands = append(b.commands, SpawnAsEntity(e, components))
	return b
}

// WithBundle queues an Insert of components on the cursor entity.
// It panics with ErrMissingEntityContext when nothing was spawned yet.
func (b *Buffer) WithBundle(components ecs.Bundle) *Buffer {
	e := b.mustCurrent("bundle")
	b.commands = append(b.commands, Insert(e, components))
	return b
}

// With queues an InsertOne of component on the cursor entity.
// It panics with ErrMissingEntityContext when nothing was spawned yet.
func (b *Buffer) With(component any) *Buffer {
	e := b.mustCurrent(fmt.Sprintf("%T", component))
	b.commands = append(b.commands, InsertOne(e, component))
	return b
}

func (b *Buffer) mustCurrent(what string) ecs.EntityID {
	if !b.hasCurrent {
		panic(fmt.Errorf("add %s: %w", what, ErrMissingEntityContext))
	}
	return b.current
}

// Push appends a prebuilt command. It does not touch the cursor.
func (b *Buffer) Push(c Command) *Buffer {
	b.commands = append(b.commands, c)
	return b
}

// Current returns the cursor entity.
func (b *Buffer) Current() (ecs.EntityID, bool) {
	return b.current, b.hasCurrent
}

func (b *Buffer) Len() int { return len(b.commands) }

// Records summarises the queued commands in order.
func (b *Buffer) Records() []Record {
	out := make([]Record, len(b.commands))
	for i, c := range b.commands {
		out[i] = c.record(i)
	}
	return out
}

// Reset discards every queued command and clears the cursor.
func (b *Buffer) Reset() {
	clear(b.commands)
	b.commands = b.commands[:0]
	b.current = 0
	b.hasCurrent = false
}

// Apply drains the buffer into w and r in enqueue order. Each command is
// taken out of the buffer before it runs. The first failing command stops
// the drain: it is reported as an *ApplyError and everything queued after it
// is dropped unapplied. The buffer is empty when Apply returns.
func (b *Buffer) Apply(w World, r Resources) error {
	return b.drain(w, r, nil)
}

func (b *Buffer) drain(w World, r Resources, applied func(Record)) error {
	cmds := b.commands
	b.commands = nil
	b.current = 0
	b.hasCurrent = false
	defer func() {
		clear(cmds)
		if b.commands == nil {
			b.commands = cmds[:0]
		}
	}()

	for i := range cmds {
		c := cmds[i]
		cmds[i] = Command{}
		if err := c.apply(w, r); err != nil {
			return &ApplyError{
				Index:     i,
				Kind:      c.Kind(),
				Entity:    c.Entity(),
				Discarded: len(cmds) - i - 1,
				Err:       err,
			}
		}
		if applied != nil {
			applied(c.record(i))
		}
	}
	return nil
}
