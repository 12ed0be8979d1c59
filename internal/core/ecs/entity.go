package ecs

import (
	"errors"
	"strconv"
	"sync"
)

var (
	// ErrNoSuchEntity is returned when an operation targets an entity that is
	// not live in storage. Reserved identifiers report this until spawned.
	ErrNoSuchEntity = errors.New("ecs: no such entity")
	// ErrStaleEntity is returned when an identifier's generation no longer
	// matches its slot, or the identifier was never handed out by the pool.
	ErrStaleEntity = errors.New("ecs: stale entity")
)

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Index 0 is never handed out, so the zero EntityID means "no entity".
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id.Index()), 10) + "v" + strconv.FormatUint(uint64(id.Generation()), 10)
}

// EntityPool manages entity allocation with generational indices and a free list.
//
// Allocation is decoupled from storage: Reserve hands out an identifier that
// stays invisible (Alive reports false) until Commit marks it live. Reserve
// may be called from any goroutine.
type EntityPool struct {
	mu          sync.Mutex
	generations []uint32
	live        []bool
	freeList    []uint32
	nextIndex   uint32
	count       int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 1, 1024),
		live:        make([]bool, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

// Reserve allocates an identifier without making it visible in storage.
func (p *EntityPool) Reserve() EntityID {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 0)
	p.live = append(p.live, false)
	return NewEntityID(idx, 0)
}

// Commit marks a reserved identifier as live. Committing a live identifier is
// a no-op.
func (p *EntityPool) Commit(id EntityID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex || p.generations[idx] != id.Generation() {
		return ErrStaleEntity
	}
	if !p.live[idx] {
		p.live[idx] = true
		p.count++
	}
	return nil
}

func (p *EntityPool) Alive(id EntityID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aliveLocked(id)
}

func (p *EntityPool) aliveLocked(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.live[idx] && p.generations[idx] == id.Generation()
}

// Destroy retires a live identifier and recycles its index. It reports
// whether the identifier was live.
func (p *EntityPool) Destroy(id EntityID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.aliveLocked(id) {
		return false
	}
	idx := id.Index()
	p.live[idx] = false
	p.count--
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	return true
}

// Len returns the number of live identifiers.
func (p *EntityPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Live returns the live identifiers in index order.
func (p *EntityPool) Live() []EntityID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EntityID, 0, p.count)
	for idx := uint32(1); idx < p.nextIndex; idx++ {
		if p.live[idx] {
			out = append(out, NewEntityID(idx, p.generations[idx]))
		}
	}
	return out
}
