package command

import (
	"sync"

	"github.com/you-win/bevy/internal/core/ecs"
)

type shared struct {
	mu       sync.Mutex
	buf      Buffer
	poisoned bool
}

// Commands is the shared, lock-protected handle over one Buffer. Clones
// share the same buffer, so every system of a pass can queue into one FIFO
// sequence. Each method holds the lock for exactly one push.
//
// The cursor used by With and WithBundle lives in the shared buffer. A
// Spawn/With pair issued from two goroutines at once may interleave; keep
// such chains on one goroutine.
type Commands struct {
	s *shared
}

// NewCommands returns an empty handle that reserves identities from alloc.
func NewCommands(alloc Allocator) *Commands {
	return &Commands{s: &shared{buf: Buffer{alloc: alloc}}}
}

// Clone returns a handle sharing the same underlying buffer.
func (c *Commands) Clone() *Commands {
	return &Commands{s: c.s}
}

// locked runs fn with the buffer lock held. A panic escaping fn poisons the
// handle; later calls then panic with ErrLockPoisoned.
func (c *Commands) locked(fn func(b *Buffer)) {
	c.s.mu.Lock()
	if c.s.poisoned {
		c.s.mu.Unlock()
		panic(ErrLockPoisoned)
	}
	done := false
	defer func() {
		if !done {
			c.s.poisoned = true
		}
		c.s.mu.Unlock()
	}()
	fn(&c.s.buf)
	done = true
}

func (c *Commands) push(cmd Command) *Commands {
	c.locked(func(b *Buffer) { b.Push(cmd) })
	return c
}

func (c *Commands) Spawn(components ecs.Bundle) *Commands {
	c.locked(func(b *Buffer) { b.Spawn(components) })
	return c
}

func (c *Commands) SpawnAsEntity(e ecs.EntityID, components ecs.Bundle) *Commands {
	c.locked(func(b *Buffer) { b.SpawnAsEntity(e, components) })
	return c
}

// With queues an InsertOne on the entity most recently spawned through this
// handle or any of its clones.
func (c *Commands) With(component any) *Commands {
	c.locked(func(b *Buffer) { b.With(component) })
	return c
}

func (c *Commands) WithBundle(components ecs.Bundle) *Commands {
	c.locked(func(b *Buffer) { b.WithBundle(components) })
	return c
}

func (c *Commands) SpawnBatch(bundles []ecs.Bundle) *Commands {
	return c.push(SpawnBatch(bundles))
}

func (c *Commands) Despawn(e ecs.EntityID) *Commands {
	return c.push(Despawn(e))
}

func (c *Commands) Insert(e ecs.EntityID, components ecs.Bundle) *Commands {
	return c.push(Insert(e, components))
}

func (c *Commands) InsertOne(e ecs.EntityID, component any) *Commands {
	return c.push(InsertOne(e, component))
}

func (c *Commands) InsertResource(v any) *Commands {
	return c.push(InsertResource(v))
}

func (c *Commands) InsertLocalResource(id ecs.SystemID, v any) *Commands {
	return c.push(InsertLocalResource(id, v))
}

// Push queues a prebuilt command.
func (c *Commands) Push(cmd Command) *Commands {
	return c.push(cmd)
}

// Current returns the cursor entity, the identifier the last Spawn reserved.
func (c *Commands) Current() (ecs.EntityID, bool) {
	var (
		e  ecs.EntityID
		ok bool
	)
	c.locked(func(b *Buffer) { e, ok = b.Current() })
	return e, ok
}

func (c *Commands) Len() int {
	n := 0
	c.locked(func(b *Buffer) { n = b.Len() })
	return n
}

// Records summarises the queued commands in order.
func (c *Commands) Records() []Record {
	var recs []Record
	c.locked(func(b *Buffer) { recs = b.Records() })
	return recs
}

// Reset discards everything queued so far.
func (c *Commands) Reset() {
	c.locked(func(b *Buffer) { b.Reset() })
}

// Poisoned reports whether a panic escaped while the lock was held.
func (c *Commands) Poisoned() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.poisoned
}

// Apply drains every queued command into w and r in enqueue order and is the
// only place queued work touches live state. It stops at the first failing
// command and returns an *ApplyError; commands after it are discarded.
// Afterwards the handle is empty and can be reused.
//
// Apply must not run concurrently with itself on the same handle, and the
// World or Resources it calls must not call back into the handle.
func (c *Commands) Apply(w World, r Resources) error {
	_, err := c.ApplyRecorded(w, r)
	return err
}

// ApplyRecorded is Apply that also returns a record of every command that
// was applied successfully, in order.
func (c *Commands) ApplyRecorded(w World, r Resources) ([]Record, error) {
	c.s.mu.Lock()
	if c.s.poisoned {
		c.s.mu.Unlock()
		return nil, ErrLockPoisoned
	}
	done := false
	defer func() {
		if !done {
			c.s.poisoned = true
		}
		c.s.mu.Unlock()
	}()

	recs := make([]Record, 0, c.s.buf.Len())
	err := c.s.buf.drain(w, r, func(rec Record) {
		recs = append(recs, rec)
	})
	done = true
	return recs, err
}
