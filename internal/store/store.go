// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"
)

// Actions recorded in the journal.
const (
	ActionCreated = "created"
	ActionRemoved = "removed"
)

// JournalEntry is one completed gateway action. Only finished create/delete
// operations are journaled; in-progress conversation state never touches disk.
type JournalEntry struct {
	ID          int64
	GUID        string
	UserID      int64
	Action      string
	Kind        string
	Symbol      string
	Price       float64
	Operator    string
	Description string
	CreatedAt   time.Time
}

// JournalStore defines the interface for the gateway action journal.
type JournalStore interface {
	Record(ctx context.Context, entry *JournalEntry) error
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
	Close() error
}
