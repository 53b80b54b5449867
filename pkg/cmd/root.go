package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Heather/cabal/pkg/config"
)

var (
	flagCacheRoot     string
	flagAllowInsecure bool

	// DevCfg holds the resolved developer configuration, available to all
	// subcommands after PersistentPreRunE completes.
	DevCfg *config.DevConfig
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cabal-fetch",
		Short: "Package artifact fetcher",
		Long:  "cabal-fetch resolves versioned package artifacts from configured repositories into a local cache, downloading each artifact at most once.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDevConfig(flagCacheRoot, flagAllowInsecure)
			if err != nil {
				return err
			}
			DevCfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagCacheRoot, "cache-root", "", "directory to cache fetched artifacts under")
	root.PersistentFlags().BoolVar(&flagAllowInsecure, "allow-insecure", false, "permit downloads over plain http")

	root.AddCommand(newFetchCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newListCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
