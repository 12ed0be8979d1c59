package ecs

import "github.com/google/uuid"

// SystemID identifies one system instance. It scopes system-local resources.
type SystemID uuid.UUID

// NewSystemID returns a fresh random SystemID.
func NewSystemID() SystemID {
	return SystemID(uuid.New())
}

func (id SystemID) IsZero() bool { return id == SystemID(uuid.Nil) }

func (id SystemID) String() string { return uuid.UUID(id).String() }
