package lookup

import (
	"context"
	"fmt"
)

type declaring struct {
	Backend
	watchFace string
	ids       []int
}

// WithDeclared returns a Backend that declares ids for watchFace as soon as
// it is opened, so every configured slot is known to the platform.
func WithDeclared(b Backend, watchFace string, ids ...int) Backend {
	return &declaring{Backend: b, watchFace: watchFace, ids: append([]int(nil), ids...)}
}

func (d *declaring) Open(ctx context.Context) error {
	if err := d.Backend.Open(ctx); err != nil {
		return err
	}
	if err := d.Backend.Declare(ctx, d.watchFace, d.ids...); err != nil {
		_ = d.Backend.Close()
		return fmt.Errorf("declare slots: %w", err)
	}
	return nil
}
