// Package interner maps strings to dense 16-bit ids so that option
// descriptors can be packed four to a uint64.
package interner

import (
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
)

// ID is a dense interned-string id in [0, Capacity).
type ID uint16

const (
	// Null marks an absent field. It is never handed out by ToID.
	Null ID = 0xFFFF
	// Capacity is the number of distinct strings one interner can hold.
	Capacity = int(Null)
)

// Interner assigns ids in allocation order. An id never changes once
// assigned, regardless of how the backing map grows.
type Interner struct {
	mu   sync.RWMutex
	ids  map[string]ID
	byID []string
}

func New() *Interner {
	return &Interner{
		ids: make(map[string]ID),
	}
}

// ToID trims s and returns its id, allocating the next one for a new string.
func (in *Interner) ToID(s string) (ID, error) {
	s = strings.TrimSpace(s)

	in.mu.RLock()
	id, ok := in.ids[s]
	in.mu.RUnlock()
	if ok {
		return id, nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[s]; ok {
		return id, nil
	}
	if len(in.byID) >= Capacity {
		return Null, fmt.Errorf("interning %q: %d strings already allocated: %w",
			s, len(in.byID), apperrors.ErrCapacityExceeded)
	}
	// copy so the table does not pin the caller's backing buffer
	owned := strings.Clone(s)
	id = ID(len(in.byID))
	in.byID = append(in.byID, owned)
	in.ids[owned] = id
	return id, nil
}

// FromID returns the string for id. Null decodes to "".
func (in *Interner) FromID(id ID) string {
	if id == Null {
		return ""
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.byID) {
		panic(fmt.Sprintf("interner: id %d was never allocated (len %d)", id, len(in.byID)))
	}
	return in.byID[id]
}

// Len reports how many ids have been allocated.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byID)
}
