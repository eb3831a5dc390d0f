package faceslots

import (
	"fmt"

	"github.com/ferro-labs/faceslots/chooser"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

// SlotState is the coordinator's view of one slot.
type SlotState int

// Slot states. Every slot starts Unknown until its lookup answers.
const (
	StateUnknown SlotState = iota
	StateBound
	StateUnbound
	StateSelecting
)

var slotStateNames = map[SlotState]string{
	StateUnknown:   "unknown",
	StateBound:     "bound",
	StateUnbound:   "unbound",
	StateSelecting: "selecting",
}

// String implements fmt.Stringer.
func (s SlotState) String() string {
	if name, ok := slotStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s SlotState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SlotState) UnmarshalText(b []byte) error {
	for state, name := range slotStateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown slot state %q", b)
}

// SlotChange is the immutable notification handed to view sinks. Provider
// is nil when nothing is bound.
type SlotChange struct {
	SlotID   int
	Location slots.Location
	Provider *providers.Info
	State    SlotState
}

// SlotStatus is one row of a Snapshot.
type SlotStatus struct {
	Location       slots.Location   `json:"location"`
	ID             int              `json:"id"`
	State          SlotState        `json:"state"`
	Provider       *providers.Info  `json:"provider"`
	SupportedTypes []providers.Type `json:"supported_types,omitempty"`
}

// PendingSelection names the slot whose chooser session is being tracked.
type PendingSelection struct {
	SlotID   int            `json:"slot_id"`
	Location slots.Location `json:"location"`
	Token    chooser.Token  `json:"token"`
}

// Snapshot is a point-in-time copy of the binding table.
type Snapshot struct {
	WatchFace string            `json:"watch_face"`
	Slots     []SlotStatus      `json:"slots"`
	Pending   *PendingSelection `json:"pending,omitempty"`
}

// Slot returns the status row for loc.
func (s Snapshot) Slot(loc slots.Location) (SlotStatus, bool) {
	for _, st := range s.Slots {
		if st.Location == loc {
			return st, true
		}
	}
	return SlotStatus{}, false
}

// binding is one entry of the binding table. The coordinator goroutine is
// its only reader and writer.
type binding struct {
	slot      slots.Slot
	provider  *providers.Info
	resolved  SlotState
	selecting bool
}

func (b *binding) state() SlotState {
	if b.selecting {
		return StateSelecting
	}
	return b.resolved
}

func (b *binding) set(info *providers.Info) {
	b.provider = info.Clone()
	if info == nil {
		b.resolved = StateUnbound
	} else {
		b.resolved = StateBound
	}
}

func (b *binding) status() SlotStatus {
	return SlotStatus{
		Location:       b.slot.Location,
		ID:             b.slot.ID,
		State:          b.state(),
		Provider:       b.provider.Clone(),
		SupportedTypes: append([]providers.Type(nil), b.slot.SupportedTypes...),
	}
}

type pendingSelection struct {
	slotID int
	token  chooser.Token
}
