package view

import "sync/atomic"

// Holder owns the current view table. Rebuilds replace the table wholesale
// behind a single atomic pointer: readers observe either the fully-old or
// the fully-new table, never a partially populated one, and take no lock.
type Holder struct {
	p atomic.Pointer[Table]
}

// NewHolder returns an empty holder. Load returns nil until the first
// successful Store.
func NewHolder() *Holder { return &Holder{} }

// Load returns the current table, or nil before the first rebuild.
func (h *Holder) Load() *Table { return h.p.Load() }

// Store replaces the current table.
func (h *Holder) Store(t *Table) { h.p.Store(t) }
