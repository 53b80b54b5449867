package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Heather/cabal/pkg/config"
)

// knownMirrors are the repositories offered during init.
var knownMirrors = map[string]config.RepoConfig{
	"hackage.haskell.org": {
		URL:    "https://hackage.haskell.org",
		Layout: "package",
	},
	"hackage-legacy-archive": {
		URL:    "https://hackage.haskell.org/packages/archive",
		Layout: "legacy",
	},
}

func newInitCmd() *cobra.Command {
	var (
		global  bool
		mirrors []string
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a cabal.toml repository manifest",
		Long:  "Creates a cabal.toml manifest listing the repositories to fetch from.",
		Args:  cobra.NoArgs,
		// init does not need dev config resolution; skip the root PersistentPreRunE.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ManifestFileName
			if global {
				var err error
				path, err = config.GlobalManifestPath()
				if err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}

			selected := mirrors
			if len(selected) == 0 {
				var err error
				selected, err = promptMirrors()
				if err != nil {
					return err
				}
			}

			cfg := &config.Config{Repos: make(map[string]config.RepoConfig)}
			for _, name := range selected {
				rc, ok := knownMirrors[name]
				if !ok {
					return fmt.Errorf("unknown mirror %q; known mirrors: %v", name, mirrorNames())
				}
				cfg.Repos[name] = rc
			}

			if err := config.SaveFile(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	initCmd.Flags().BoolVar(&global, "global", false, "write the global manifest (~/.cabal/cabal.toml)")
	initCmd.Flags().StringSliceVar(&mirrors, "mirror", nil, "mirrors to configure without prompting")

	return initCmd
}

func mirrorNames() []string {
	names := make([]string, 0, len(knownMirrors))
	for name := range knownMirrors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// promptMirrors uses huh to present a multi-select of known mirrors.
func promptMirrors() ([]string, error) {
	names := mirrorNames()
	options := make([]huh.Option[string], len(names))
	for i, name := range names {
		options[i] = huh.NewOption(name, name)
	}

	var selected []string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Which repositories should packages be fetched from?").
				Options(options...).
				Value(&selected),
		),
	).Run()
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}

	return selected, nil
}
