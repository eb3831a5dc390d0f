// Package slots holds the static slot registry of a watch face: which named
// locations exist, the numeric id the lookup and chooser subsystems know
// each one by, and the provider types each accepts.
//
// A Registry is immutable once built and safe for concurrent use.
package slots

import (
	"fmt"
	"strings"
)

// Location is the tagged identity of a slot on the watch face.
type Location uint8

// Known locations. The zero value is not a valid location.
const (
	LocationUnset Location = iota
	Left
	Right
	Top
	Bottom
	Background
)

var locationNames = map[Location]string{
	Left:       "left",
	Right:      "right",
	Top:        "top",
	Bottom:     "bottom",
	Background: "background",
}

// String implements fmt.Stringer.
func (l Location) String() string {
	if name, ok := locationNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLocation maps a case-insensitive name to a Location.
func ParseLocation(s string) (Location, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for loc, name := range locationNames {
		if name == want {
			return loc, nil
		}
	}
	return LocationUnset, fmt.Errorf("unknown slot location %q", s)
}

// Locations returns every known location in declaration order.
func Locations() []Location {
	return []Location{Left, Right, Top, Bottom, Background}
}

// MarshalText implements encoding.TextMarshaler.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Location) UnmarshalText(b []byte) error {
	loc, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = loc
	return nil
}
