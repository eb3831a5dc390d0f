package faceslots

import (
	"context"

	"github.com/ferro-labs/faceslots/chooser"
	"github.com/ferro-labs/faceslots/lookup"
)

// LookupClient is the provider-info service the coordinator refreshes
// bindings from. *lookup.Client implements it.
type LookupClient interface {
	Initialize(ctx context.Context) error
	RequestBulkInfo(watchFace string, ids []int, onResult lookup.ResultFunc) error
	Release() error
}

var _ LookupClient = (*lookup.Client)(nil)

// Launcher starts chooser sessions. chooser.Local and chooser.HTTP
// implement it.
type Launcher = chooser.Launcher

// ViewSink is told about every binding change. It is called on the
// coordinator goroutine and must not call back into the coordinator.
// Errors and panics are logged and otherwise ignored.
type ViewSink interface {
	SlotChanged(ctx context.Context, change SlotChange) error
}

// ViewSinkFunc adapts a function to ViewSink.
type ViewSinkFunc func(ctx context.Context, change SlotChange) error

// SlotChanged implements ViewSink.
func (f ViewSinkFunc) SlotChanged(ctx context.Context, change SlotChange) error {
	return f(ctx, change)
}
