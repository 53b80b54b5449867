package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Heather/cabal/pkg/fetch"
	"github.com/Heather/cabal/pkg/transport"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh the package index of each remote repository",
		Long: `Downloads the package index of every configured remote repository into its
cache root. Indexes that the remote reports unchanged are left alone. Local
mirrors and secure repositories are skipped: a mirror's index arrives with
its sync, and a secure repository's index is managed by its verifier.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadManifest()
			if err != nil {
				return err
			}

			remotes, err := cfg.RemoteRepositories()
			if err != nil {
				return err
			}
			if len(remotes) == 0 {
				fmt.Println("No remote repositories configured.")
				return nil
			}

			names := make([]string, 0, len(remotes))
			for name := range remotes {
				names = append(names, name)
			}
			sort.Strings(names)

			t := newTransport()
			for _, name := range names {
				r := remotes[name]
				res, err := fetch.DownloadIndex(cmd.Context(), t, r)
				if err != nil {
					return fmt.Errorf("updating index for %q: %w", name, err)
				}
				switch res {
				case transport.NotModified:
					fmt.Printf("%s: index is up to date\n", name)
				default:
					fmt.Printf("%s: downloaded index\n", name)
				}
			}
			return nil
		},
	}
}
