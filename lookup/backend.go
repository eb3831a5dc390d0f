// Package lookup asks the platform which provider is currently bound to each
// slot of a watch face.
//
// A Backend answers single-slot questions synchronously. Client wraps a
// Backend with the asynchronous batch contract the coordinator relies on:
// RequestBulkInfo fans the ids out to a bounded worker pool and delivers one
// callback per slot the backend knows, in no particular order; Release
// cancels outstanding work and guarantees that no callback runs after it
// returns.
//
// Backends are registered by name (RegisterBackend) so the daemon can pick
// one from config. Built-ins: "memory", "sqlite", "postgres".
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ferro-labs/faceslots/providers"
)

// ErrUnknownBackend is returned by NewBackend for an unregistered name.
var ErrUnknownBackend = errors.New("unknown lookup backend")

// Backend is the platform store of slot bindings.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Open establishes the connection. Called once by Client.Initialize.
	Open(ctx context.Context) error
	// Lookup returns the provider bound to slotID. known is false when the
	// backend has never heard of the slot; info is nil when the slot is
	// known but nothing is bound.
	Lookup(ctx context.Context, watchFace string, slotID int) (info *providers.Info, known bool, err error)
	// Bind records info (nil clears the binding) for slotID.
	Bind(ctx context.Context, watchFace string, slotID int, info *providers.Info) error
	// Declare marks slotIDs as known to the platform without binding them.
	Declare(ctx context.Context, watchFace string, slotIDs ...int) error
	// Close releases the connection.
	Close() error
}

// BackendFactory creates a Backend from a data source name. Factories must
// not connect; Open does.
type BackendFactory func(dsn string) (Backend, error)

// backendRegistry is the global registry of backend factories.
var backendRegistry = map[string]BackendFactory{}

func init() {
	RegisterBackend("memory", func(string) (Backend, error) { return NewMemory(), nil })
	RegisterBackend("sqlite", func(dsn string) (Backend, error) { return NewSQLite(dsn), nil })
	RegisterBackend("postgres", func(dsn string) (Backend, error) { return NewPostgres(dsn) })
}

// RegisterBackend registers a backend factory by name. Registration happens
// at init time; it is not safe to call concurrently with NewBackend.
func RegisterBackend(name string, factory BackendFactory) {
	backendRegistry[name] = factory
}

// NewBackend creates the named backend.
func NewBackend(name, dsn string) (Backend, error) {
	f, ok := backendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return f(dsn)
}

// Backends returns the sorted names of all registered backends.
func Backends() []string {
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
