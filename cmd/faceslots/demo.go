package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/slots"
	"github.com/ferro-labs/faceslots/view"
)

// demoConfig is used when demo runs without --config.
func demoConfig() *faceslots.Config {
	return &faceslots.Config{
		WatchFace: "demo",
		Slots: []faceslots.SlotConfig{
			{Location: "left", ID: 0, SupportedTypes: []string{"short_text", "ranged_value"}},
			{Location: "right", ID: 1, SupportedTypes: []string{"short_text", "icon"}},
			{Location: "bottom", ID: 2, SupportedTypes: []string{"long_text"}},
			{Location: "background", ID: -1},
		},
	}
}

func demoCmd() *cobra.Command {
	var (
		configPath string
		pick       string
		selections []string
		wait       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the coordinator in-process and pick providers for slots",
		Long: `Runs the slot coordinator with an in-process chooser and prints each
slot change as it happens, then the final slot board.

The chooser stands in for the user: --pick first takes the first compatible
provider, --pick cancel dismisses the chooser, any other value picks that
provider by name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := demoConfig()
			if configPath != "" {
				loaded, err := loadValidConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfg.Chooser = faceslots.ChooserConfig{Mode: faceslots.ChooserLocal, Picker: pick}

			locs := make([]slots.Location, 0, len(selections))
			for _, s := range selections {
				loc, err := slots.ParseLocation(s)
				if err != nil {
					return err
				}
				locs = append(locs, loc)
			}

			return runDemo(cmd.Context(), cmd, cfg, locs, wait)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Slot config file (defaults to a built-in four-slot face)")
	cmd.Flags().StringVar(&pick, "pick", "first", "Chooser answer: first, cancel, or a provider name")
	cmd.Flags().StringSliceVar(&selections, "select", []string{"left"}, "Slots to tap, in order")
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "How long to wait for each step")
	return cmd
}

func runDemo(ctx context.Context, cmd *cobra.Command, cfg *faceslots.Config, locs []slots.Location, wait time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	logger := logging.Logger

	comps, err := cfg.Build(logger)
	if err != nil {
		return err
	}
	coord := faceslots.New(cfg.CoordinatorConfig(), comps.Registry, comps.Client, comps.Launcher,
		faceslots.WithViewSink(view.NewTerminal(out)),
		faceslots.WithLogger(logger),
	)
	coord.Start(ctx)
	defer func() { _ = coord.Stop() }()

	// The initial refresh answers every declared slot.
	valid := len(comps.Registry.Valid())
	if _, err := awaitSnapshot(ctx, coord, wait, func(s faceslots.Snapshot) bool {
		resolved := 0
		for _, st := range s.Slots {
			if st.State != faceslots.StateUnknown {
				resolved++
			}
		}
		return resolved == valid
	}); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	for _, loc := range locs {
		token, err := coord.Select(ctx, loc)
		if err != nil {
			if errors.Is(err, faceslots.ErrSlotUnsupported) {
				fmt.Fprintf(out, "%s: not offered by this face\n", loc)
				continue
			}
			return err
		}
		if _, err := awaitSnapshot(ctx, coord, wait, func(s faceslots.Snapshot) bool {
			return s.Pending == nil || s.Pending.Token != token
		}); err != nil {
			return fmt.Errorf("choosing for %s: %w", loc, err)
		}
	}

	snap, err := coord.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, view.Board(snap))
	return nil
}

var errTimeout = errors.New("timed out")

// awaitSnapshot polls the coordinator until done reports true.
func awaitSnapshot(ctx context.Context, c *faceslots.Coordinator, wait time.Duration, done func(faceslots.Snapshot) bool) (faceslots.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap, err := c.Snapshot(ctx)
		switch {
		case err == nil && done(snap):
			return snap, nil
		case err != nil && !errors.Is(err, faceslots.ErrNotRunning) && ctx.Err() == nil:
			return snap, err
		}
		select {
		case <-ctx.Done():
			return snap, errTimeout
		case <-c.Done():
			if err := c.Stop(); err != nil {
				return snap, err
			}
			return snap, faceslots.ErrNotRunning
		case <-ticker.C:
		}
	}
}
