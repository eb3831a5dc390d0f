// Package providers defines the data providers that can be bound to a
// watch-face slot (battery, step count, next event...) and the catalog a
// chooser offers the user.
//
// Core types: Type, Info, Catalog.
package providers

import (
	"fmt"
	"slices"
)

// Type identifies a kind of data a slot can display. The set is open: any
// non-empty identifier is accepted, the constants below are the ones the
// built-in catalog uses.
type Type string

// Type constants for the common complication data shapes.
const (
	TypeShortText   Type = "short_text"
	TypeLongText    Type = "long_text"
	TypeRangedValue Type = "ranged_value"
	TypeIcon        Type = "icon"
	TypeSmallImage  Type = "small_image"
	TypeLargeImage  Type = "large_image"
)

// Info describes a provider bound to a slot. It is treated as an immutable
// value: a nil *Info means "no provider bound".
type Info struct {
	// Name is the catalog key, e.g. "battery".
	Name string `json:"name" yaml:"name"`
	// Component is the opaque identity of the provider service.
	Component string `json:"component" yaml:"component"`
	// Icon is an opaque icon reference (resource name or URI).
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
	// Types lists the data types this provider can supply.
	Types []Type `json:"types,omitempty" yaml:"types,omitempty"`
}

// Clone returns a deep copy of i. Clone of nil is nil.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Types = slices.Clone(i.Types)
	return &cp
}

// Equal reports whether i and o describe the same provider. Two nil values
// are equal.
func (i *Info) Equal(o *Info) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Name == o.Name &&
		i.Component == o.Component &&
		i.Icon == o.Icon &&
		slices.Equal(i.Types, o.Types)
}

// Supports reports whether the provider can supply at least one of types.
func (i *Info) Supports(types []Type) bool {
	if i == nil {
		return false
	}
	for _, t := range types {
		if slices.Contains(i.Types, t) {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (i *Info) String() string {
	if i == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.Component)
}
