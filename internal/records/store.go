package records

import (
	"sync/atomic"
	"time"
)

// Collections holds one slice per record kind.
type Collections struct {
	Orders       []Order        `json:"orders"`
	Batches      []Batch        `json:"batches"`
	Labs         []Lab          `json:"labs"`
	Inventory    []Inventory    `json:"inventory"`
	Turnover     []Turnover     `json:"turnover"`
	Approvals    []Approval     `json:"approvals"`
	Submissions  []Submission   `json:"submissions"`
	SupplierPerf []SupplierPerf `json:"supplier_perf"`
	Deviations   []Deviation    `json:"deviations"`
}

// Len returns the number of records of the given kind.
func (c *Collections) Len(k Kind) int {
	switch k {
	case KindOrders:
		return len(c.Orders)
	case KindBatches:
		return len(c.Batches)
	case KindLabs:
		return len(c.Labs)
	case KindInventory:
		return len(c.Inventory)
	case KindTurnover:
		return len(c.Turnover)
	case KindApprovals:
		return len(c.Approvals)
	case KindSubmissions:
		return len(c.Submissions)
	case KindSupplierPerf:
		return len(c.SupplierPerf)
	case KindDeviations:
		return len(c.Deviations)
	}
	return 0
}

// Store is an immutable set of collections. Callers must not mutate the
// slices it exposes; a reload builds a new Store instead.
type Store struct {
	Collections
	LoadedAt time.Time
	caps     [len(kindNames)]Capabilities
}

// NewStore wraps collections and derives per-kind capabilities.
func NewStore(c Collections, loadedAt time.Time) *Store {
	s := &Store{Collections: c, LoadedAt: loadedAt}
	s.caps[KindOrders].HasCategory = anyCategory(c.Orders)
	s.caps[KindBatches].HasCategory = anyCategory(c.Batches)
	s.caps[KindLabs].HasCategory = anyCategory(c.Labs)
	s.caps[KindInventory].HasCategory = anyCategory(c.Inventory)
	s.caps[KindTurnover].HasCategory = anyCategory(c.Turnover)
	s.caps[KindApprovals].HasCategory = anyCategory(c.Approvals)
	s.caps[KindSubmissions].HasCategory = anyCategory(c.Submissions)
	s.caps[KindSupplierPerf].HasCategory = anyCategory(c.SupplierPerf)
	s.caps[KindDeviations].HasCategory = anyCategory(c.Deviations)
	return s
}

// Empty returns a store with no records.
func Empty() *Store {
	return NewStore(Collections{}, time.Time{})
}

// Capabilities reports which optional axes the kind's collection carries.
func (s *Store) Capabilities(k Kind) Capabilities {
	if s == nil || k < 0 || int(k) >= len(s.caps) {
		return Capabilities{}
	}
	return s.caps[k]
}

func anyCategory[T Scoped](rs []T) bool {
	for _, r := range rs {
		if r.Dims().Category != "" {
			return true
		}
	}
	return false
}

// Holder publishes the current Store. Replacement swaps the whole pointer so
// a reader sees either the old or the new store, never a mix.
type Holder struct {
	current atomic.Pointer[Store]
}

// NewHolder returns a holder initialised with s (or an empty store).
func NewHolder(s *Store) *Holder {
	h := &Holder{}
	if s == nil {
		s = Empty()
	}
	h.current.Store(s)
	return h
}

// Load returns the installed store.
func (h *Holder) Load() *Store {
	if s := h.current.Load(); s != nil {
		return s
	}
	return Empty()
}

// Replace installs s and returns the previous store.
func (h *Holder) Replace(s *Store) *Store {
	if s == nil {
		s = Empty()
	}
	return h.current.Swap(s)
}
