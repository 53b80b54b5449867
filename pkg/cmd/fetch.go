package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Heather/cabal/pkg/config"
	"github.com/Heather/cabal/pkg/location"
	"github.com/Heather/cabal/pkg/pkgid"
)

func newFetchCmd() *cobra.Command {
	var repoName string

	fetchCmd := &cobra.Command{
		Use:   "fetch PACKAGE...",
		Short: "Download package tarballs into the local cache",
		Long: `Downloads the named package versions (e.g. foo-1.2.3) from a configured
repository into the local cache. Packages already in the cache are not
downloaded again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]pkgid.ID, len(args))
			for i, arg := range args {
				id, err := pkgid.Parse(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			cfg, err := loadManifest()
			if err != nil {
				return err
			}

			name, err := selectRepo(cfg, repoName)
			if err != nil {
				return err
			}

			// No verifiers are registered from the CLI yet; fetching from a
			// secure repository needs the library API for now.
			r, err := cfg.Repository(name, nil)
			if err != nil {
				return err
			}

			locs := make([]location.Location, len(ids))
			for i, id := range ids {
				locs[i] = location.RepoTarball{Repo: r, ID: id}
			}

			results, err := newFetcher().FetchAll(cmd.Context(), locs)
			if err != nil {
				return err
			}

			for i, res := range results {
				fmt.Printf("%s\t%s\n", ids[i], res.LocalPath())
			}
			return nil
		},
	}

	fetchCmd.Flags().StringVar(&repoName, "repo", "", "repository to fetch from (required when several are configured)")

	return fetchCmd
}

// selectRepo picks the repository to fetch from: the --repo flag if given,
// otherwise the sole configured repository.
func selectRepo(cfg *config.Config, flag string) (string, error) {
	if flag != "" {
		if _, ok := cfg.Repos[flag]; !ok {
			return "", fmt.Errorf("no repository named %q is configured", flag)
		}
		return flag, nil
	}

	names := make([]string, 0, len(cfg.Repos))
	for name := range cfg.Repos {
		names = append(names, name)
	}
	sort.Strings(names)

	switch len(names) {
	case 0:
		return "", fmt.Errorf("no repositories configured; run \"cabal-fetch init\" first")
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("several repositories are configured (%v); pick one with --repo", names)
	}
}
