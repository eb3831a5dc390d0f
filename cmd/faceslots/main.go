// Command faceslots inspects watch face slot configs and runs the slot
// coordinator locally.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/internal/version"
	"github.com/ferro-labs/faceslots/lookup"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/view"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "faceslots",
		Short:         "Watch face slot assignment tool",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := "warn"
			if debug {
				level = "debug"
			}
			logging.Setup(level, "text")
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(validateCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(providersCmd())
	root.AddCommand(demoCmd())
	root.AddCommand(versionCmd())
	return root
}

func loadValidConfig(path string) (*faceslots.Config, error) {
	cfg, err := faceslots.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := faceslots.ValidateConfig(*cfg); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return cfg, nil
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a slot configuration file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidConfig(args[0])
			if err != nil {
				return err
			}
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}

			var offered []string
			for _, s := range registry.Valid() {
				offered = append(offered, s.Location.String())
			}
			backend := cfg.Lookup.Backend
			if backend == "" {
				backend = "memory"
			}
			mode := cfg.Chooser.Mode
			if mode == "" {
				mode = faceslots.ChooserLocal
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "✓ Config is valid")
			fmt.Fprintf(out, "  Watch face: %s\n", cfg.WatchFace)
			fmt.Fprintf(out, "  Slots:      %s\n", strings.Join(offered, ", "))
			fmt.Fprintf(out, "  Backend:    %s\n", backend)
			fmt.Fprintf(out, "  Chooser:    %s\n", mode)
			return nil
		},
	}
}

func slotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots <config-file>",
		Short: "Show the slots a config declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidConfig(args[0])
			if err != nil {
				return err
			}
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			snap := faceslots.Snapshot{WatchFace: cfg.WatchFace}
			for _, s := range registry.All() {
				snap.Slots = append(snap.Slots, faceslots.SlotStatus{
					Location:       s.Location,
					ID:             s.ID,
					State:          faceslots.StateUnknown,
					SupportedTypes: s.SupportedTypes,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Board(snap))
			return nil
		},
	}
}

func providersCmd() *cobra.Command {
	var typeFilter []string
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the built-in complication providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := providers.DefaultCatalog()
			if err != nil {
				return err
			}
			infos := catalog.All()
			if len(typeFilter) > 0 {
				infos = catalog.FindByType(providers.TypesFromStrings(typeFilter))
			}
			if len(infos) == 0 {
				return errors.New("no providers match")
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Catalog(infos))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&typeFilter, "type", nil, "Only providers supplying one of these types")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "faceslots %s\n", version.String())
			fmt.Fprintf(out, "lookup backends: %s\n", strings.Join(lookup.Backends(), ", "))
		},
	}
}
