package chooser

import (
	"context"
	"log/slog"
	"time"

	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/providers"
)

// Picker stands in for the user: given the providers compatible with the
// slot, it returns the chosen one or nil to cancel.
type Picker func(req Request, candidates []providers.Info) *providers.Info

// PickFirst chooses the first compatible provider.
func PickFirst(_ Request, candidates []providers.Info) *providers.Info {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0].Clone()
}

// PickCancel always cancels.
func PickCancel(Request, []providers.Info) *providers.Info {
	return nil
}

// PickNamed chooses the provider called name, cancelling when it is not
// compatible with the slot.
func PickNamed(name string) Picker {
	return func(_ Request, candidates []providers.Info) *providers.Info {
		for _, c := range candidates {
			if c.Name == name {
				return c.Clone()
			}
		}
		return nil
	}
}

// PickerByName maps a config value to a Picker: "first", "cancel", or any
// other value as a provider name.
func PickerByName(name string) Picker {
	switch name {
	case "", "first":
		return PickFirst
	case "cancel":
		return PickCancel
	default:
		return PickNamed(name)
	}
}

// Local is an in-process Launcher over a provider catalog.
type Local struct {
	catalog providers.Source
	picker  Picker
	binder  Binder
	delay   time.Duration
	logger  *slog.Logger
}

// LocalOption configures a Local launcher.
type LocalOption func(*Local)

// WithBinder persists every non-nil choice before it is reported.
func WithBinder(b Binder) LocalOption {
	return func(l *Local) { l.binder = b }
}

// WithDelay makes each session take d before answering.
func WithDelay(d time.Duration) LocalOption {
	return func(l *Local) { l.delay = d }
}

// WithLocalLogger sets the launcher logger.
func WithLocalLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocal creates a Local launcher. A nil picker means PickFirst.
func NewLocal(catalog providers.Source, picker Picker, opts ...LocalOption) *Local {
	if picker == nil {
		picker = PickFirst
	}
	l := &Local{catalog: catalog, picker: picker, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch implements Launcher.
func (l *Local) Launch(ctx context.Context, req Request, reply ReplyFunc) (Token, error) {
	token := NewToken()
	req = cloneRequest(req)
	sessionCtx := logging.WithSessionID(context.WithoutCancel(ctx), string(token))

	go func() {
		if l.delay > 0 {
			time.Sleep(l.delay)
		}
		log := logging.FromContext(sessionCtx, l.logger)

		choice := l.picker(req, l.catalog.FindByType(req.SupportedTypes))
		if choice != nil && l.binder != nil {
			if err := l.binder.Bind(sessionCtx, req.WatchFace, req.SlotID, choice); err != nil {
				log.Warn("chooser: persisting selection failed", "slot_id", req.SlotID, "error", err)
				choice = nil
			}
		}
		log.Debug("chooser session finished", "slot_id", req.SlotID, "provider", choice.String())
		reply(Response{Token: token, SlotID: req.SlotID, Provider: choice})
	}()

	return token, nil
}
