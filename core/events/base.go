package events

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

type Event interface {
	ID() string
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the metadata every event shares: a unique ID for correlating
// log and trace output, its kind, and when it was produced.
type Base struct {
	id        string
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{id: uuid.NewString(), kind: kind, timestamp: time.Now()}
}

func (b Base) ID() string {
	return b.id
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
