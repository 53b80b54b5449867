package cmd

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// cacheEntry is one artifact found in a repository's cache root.
type cacheEntry struct {
	Repo    string `json:"repo"`
	Package string `json:"package"`
	Version string `json:"version"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
}

func newListCmd() *cobra.Command {
	var output string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached artifacts",
		Long:  "Walks each configured repository's cache root and lists the artifacts present.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadManifest()
			if err != nil {
				return err
			}

			roots, err := cfg.CacheRoots()
			if err != nil {
				return err
			}

			var entries []cacheEntry
			for name, root := range roots {
				found, err := scanCacheRoot(name, root)
				if err != nil {
					return err
				}
				entries = append(entries, found...)
			}
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].Repo != entries[j].Repo {
					return entries[i].Repo < entries[j].Repo
				}
				if entries[i].Package != entries[j].Package {
					return entries[i].Package < entries[j].Package
				}
				return entries[i].Version < entries[j].Version
			})

			out := cmd.OutOrStdout()
			switch output {
			case "", "table":
				for _, e := range entries {
					fmt.Fprintf(out, "%s\t%s-%s\t%s\n", e.Repo, e.Package, e.Version, e.Path)
				}
				return nil
			case "json":
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			case "yaml":
				data, err := yaml.Marshal(entries)
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
				return nil
			default:
				return fmt.Errorf("unknown output format %q: expected table, json, or yaml", output)
			}
		},
	}

	listCmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json, or yaml")

	return listCmd
}

// scanCacheRoot finds <root>/<name>/<version>/<name>-<version>.tar.gz
// entries. A missing root just means nothing has been fetched yet.
func scanCacheRoot(repoName, root string) ([]cacheEntry, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}

	var entries []cacheEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tar.gz") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(rel, string(filepath.Separator))
		// name/version/name-version.tar.gz; anything else (e.g. the index
		// at the root) is not an artifact.
		if len(parts) != 3 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entries = append(entries, cacheEntry{
			Repo:    repoName,
			Package: parts[0],
			Version: parts[1],
			Path:    path,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cache root %s: %w", root, err)
	}
	return entries, nil
}
