package faceslots

import (
	"fmt"
	"log/slog"

	"github.com/ferro-labs/faceslots/chooser"
	"github.com/ferro-labs/faceslots/internal/circuitbreaker"
	"github.com/ferro-labs/faceslots/lookup"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

// Components are the collaborators described by a Config, ready to hand to
// New.
type Components struct {
	Registry *slots.Registry
	Backend  lookup.Backend
	Client   *lookup.Client
	Launcher Launcher
	// Sessions is set when the chooser runs as an external HTTP service and
	// must be fed callbacks.
	Sessions *chooser.HTTP
	Catalog  *providers.Catalog
}

// Build assembles the slot registry, lookup backend and client, provider
// catalog and chooser launcher for cfg. The backend declares every
// configured slot id when it is opened. cfg should already have passed
// ValidateConfig.
func (c Config) Build(logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := c.Registry()
	if err != nil {
		return nil, fmt.Errorf("building slot registry: %w", err)
	}

	name := c.Lookup.Backend
	if name == "" {
		name = "memory"
	}
	backend, err := lookup.NewBackend(name, c.Lookup.DSN)
	if err != nil {
		return nil, err
	}
	backend = lookup.WithDeclared(backend, c.WatchFace, registry.IDs()...)

	catalog, err := providers.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading provider catalog: %w", err)
	}

	comps := &Components{
		Registry: registry,
		Backend:  backend,
		Client: lookup.NewClient(backend,
			lookup.WithWorkers(c.Lookup.Workers),
			lookup.WithLogger(logger),
		),
		Catalog: catalog,
	}

	switch c.Chooser.Mode {
	case ChooserHTTP:
		timeout, err := c.Chooser.Timeout()
		if err != nil {
			return nil, err
		}
		sessions := chooser.NewHTTP(c.Chooser.URL, c.Chooser.CallbackBaseURL,
			chooser.WithBreaker(circuitbreaker.New(c.Chooser.FailureThreshold, 1, timeout)),
			chooser.WithHTTPBinder(backend),
			chooser.WithHTTPLogger(logger),
		)
		comps.Sessions = sessions
		comps.Launcher = sessions
	case ChooserLocal, "":
		comps.Launcher = chooser.NewLocal(catalog, chooser.PickerByName(c.Chooser.Picker),
			chooser.WithBinder(backend),
			chooser.WithLocalLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown chooser mode %q", c.Chooser.Mode)
	}

	return comps, nil
}
