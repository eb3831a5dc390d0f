package slots

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ferro-labs/faceslots/providers"
)

// InvalidID marks a slot that is not present on this watch face.
const InvalidID = -1

// Registry construction errors.
var (
	ErrDuplicateLocation = errors.New("duplicate slot location")
	ErrDuplicateID       = errors.New("duplicate slot id")
)

// Slot is one named position on the watch face.
type Slot struct {
	Location       Location
	ID             int
	SupportedTypes []providers.Type
}

// Valid reports whether the slot exists on the watch face and can be
// looked up or reassigned.
func (s Slot) Valid() bool {
	return s.ID >= 0
}

// Registry is the static mapping from location to slot metadata.
type Registry struct {
	order []Location
	byLoc map[Location]Slot
	byID  map[int]Location
}

// New builds a registry. Slots keep their declaration order. A slot with a
// negative id is recorded as not present; negative ids may repeat.
func New(slots ...Slot) (*Registry, error) {
	r := &Registry{
		byLoc: make(map[Location]Slot, len(slots)),
		byID:  make(map[int]Location, len(slots)),
	}
	for _, s := range slots {
		if _, ok := r.byLoc[s.Location]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLocation, s.Location)
		}
		if s.ID < 0 {
			s.ID = InvalidID
		} else {
			if other, ok := r.byID[s.ID]; ok {
				return nil, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateID, s.ID, other, s.Location)
			}
			r.byID[s.ID] = s.Location
		}
		s.SupportedTypes = slices.Clone(s.SupportedTypes)
		r.byLoc[s.Location] = s
		r.order = append(r.order, s.Location)
	}
	return r, nil
}

// MustNew is New that panics on error. Intended for tests and static tables.
func MustNew(slots ...Slot) *Registry {
	r, err := New(slots...)
	if err != nil {
		panic(err)
	}
	return r
}

// SlotFor returns the slot at loc. It is total: a location the watch face
// does not declare yields a slot with InvalidID.
func (r *Registry) SlotFor(loc Location) Slot {
	s, ok := r.byLoc[loc]
	if !ok {
		return Slot{Location: loc, ID: InvalidID}
	}
	return copySlot(s)
}

// ByID returns the slot with the given non-negative id.
func (r *Registry) ByID(id int) (Slot, bool) {
	if id < 0 {
		return Slot{}, false
	}
	loc, ok := r.byID[id]
	if !ok {
		return Slot{}, false
	}
	return copySlot(r.byLoc[loc]), true
}

// All returns every declared slot in declaration order.
func (r *Registry) All() []Slot {
	out := make([]Slot, 0, len(r.order))
	for _, loc := range r.order {
		out = append(out, copySlot(r.byLoc[loc]))
	}
	return out
}

// Valid returns the declared slots that are present on the watch face, in
// declaration order.
func (r *Registry) Valid() []Slot {
	var out []Slot
	for _, s := range r.All() {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// IDs returns the ids of Valid slots.
func (r *Registry) IDs() []int {
	valid := r.Valid()
	ids := make([]int, len(valid))
	for i, s := range valid {
		ids[i] = s.ID
	}
	return ids
}

func copySlot(s Slot) Slot {
	s.SupportedTypes = slices.Clone(s.SupportedTypes)
	return s
}
