package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/Heather/cabal/pkg/repo"
)

// ManifestFileName is the repository manifest filename, used for both
// project-local and global configurations.
const ManifestFileName = "cabal.toml"

type Config struct {
	Cache CacheConfig           `toml:"cache"`
	Repos map[string]RepoConfig `toml:"repos,omitempty"`
}

type CacheConfig struct {
	// Root is the directory per-repository cache roots are created under.
	// Defaults to ~/.cabal/packages.
	Root string `toml:"root,omitempty"`
}

// RepoConfig describes one named repository. Exactly one of URL and Mirror
// is set: URL for a remote endpoint (optionally verified), Mirror for a
// pre-synced local directory.
type RepoConfig struct {
	URL string `toml:"url,omitempty"`
	// Layout is "legacy" or "package"; it is a fixed property of the
	// endpoint. Defaults to "package".
	Layout string `toml:"layout,omitempty"`
	// Secure marks the repository as cryptographically verified. Fetching
	// from it requires a verifier registered under the repository's name.
	Secure bool `toml:"secure,omitempty"`
	// Mirror is a local directory already containing the artifact tree.
	Mirror string `toml:"mirror,omitempty"`
	// Root overrides the cache root for this repository.
	Root string `toml:"root,omitempty"`
}

func UnmarshalConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	err := toml.Unmarshal(data, cfg)

	return cfg, err
}

func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return UnmarshalConfig(data)
}

func SaveFile(path string, cfg *Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GlobalConfigDir returns the path to ~/.cabal, creating it if necessary.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	dir := filepath.Join(home, ".cabal")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// GlobalManifestPath returns the path to the global manifest
// (~/.cabal/cabal.toml), ensuring the directory exists.
func GlobalManifestPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ManifestFileName), nil
}

// DefaultCacheRoot returns ~/.cabal/packages.
func DefaultCacheRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".cabal", "packages"), nil
}

// Repositories materializes the configured repositories. Secure repositories
// need a verifier registered under their name in clients; anything else in
// clients is ignored. Construction fails when two repositories would share a
// cache root, since shared roots make cache paths collide.
func (c *Config) Repositories(clients map[string]repo.SecureClient) (map[string]repo.Repository, error) {
	cacheRoot, err := c.resolvedCacheRoot()
	if err != nil {
		return nil, err
	}
	if err := c.checkUniqueRoots(cacheRoot); err != nil {
		return nil, err
	}

	repos := make(map[string]repo.Repository, len(c.Repos))
	for name, rc := range c.Repos {
		r, err := buildRepository(name, rc, cacheRoot, clients)
		if err != nil {
			return nil, err
		}
		repos[name] = r
	}

	return repos, nil
}

// Repository materializes a single named repository. The unique-root
// invariant is still checked over the whole manifest: a colliding pair of
// repositories is a broken configuration even when only one of them is used.
func (c *Config) Repository(name string, clients map[string]repo.SecureClient) (repo.Repository, error) {
	rc, ok := c.Repos[name]
	if !ok {
		return nil, fmt.Errorf("no repository named %q is configured", name)
	}

	cacheRoot, err := c.resolvedCacheRoot()
	if err != nil {
		return nil, err
	}
	if err := c.checkUniqueRoots(cacheRoot); err != nil {
		return nil, err
	}

	return buildRepository(name, rc, cacheRoot, clients)
}

// RemoteRepositories materializes just the plain remote repositories, the
// ones whose index this tool refreshes itself. Local mirrors and secure
// repositories are left out: a mirror's index arrives with its sync, and a
// secure repository's index is managed by its verifier.
func (c *Config) RemoteRepositories() (map[string]repo.Remote, error) {
	cacheRoot, err := c.resolvedCacheRoot()
	if err != nil {
		return nil, err
	}
	if err := c.checkUniqueRoots(cacheRoot); err != nil {
		return nil, err
	}

	remotes := make(map[string]repo.Remote)
	for name, rc := range c.Repos {
		if rc.Mirror != "" || rc.Secure {
			continue
		}
		r, err := buildRepository(name, rc, cacheRoot, nil)
		if err != nil {
			return nil, err
		}
		remotes[name] = r.(repo.Remote)
	}
	return remotes, nil
}

// CacheRoots returns every configured repository's cache root without
// materializing the repositories, so no verifier is needed for the secure
// ones.
func (c *Config) CacheRoots() (map[string]string, error) {
	cacheRoot, err := c.resolvedCacheRoot()
	if err != nil {
		return nil, err
	}

	roots := make(map[string]string, len(c.Repos))
	for name, rc := range c.Repos {
		roots[name] = resolveRoot(name, rc, cacheRoot)
	}
	return roots, nil
}

func (c *Config) resolvedCacheRoot() (string, error) {
	if c.Cache.Root != "" {
		return c.Cache.Root, nil
	}
	return DefaultCacheRoot()
}

// checkUniqueRoots rejects any pair of repositories sharing a cache root.
// Every materialization path runs it, so a colliding manifest fails before
// anything touches the filesystem.
func (c *Config) checkUniqueRoots(cacheRoot string) error {
	names := make([]string, 0, len(c.Repos))
	for name := range c.Repos {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	for _, name := range names {
		root := resolveRoot(name, c.Repos[name], cacheRoot)
		if other, dup := seen[root]; dup {
			return fmt.Errorf("repositories %q and %q share cache root %s", other, name, root)
		}
		seen[root] = name
	}
	return nil
}

// resolveRoot computes a repository's cache root: the mirror directory for a
// local mirror, the explicit override if set, a per-name directory under the
// shared cache root otherwise.
func resolveRoot(name string, rc RepoConfig, cacheRoot string) string {
	switch {
	case rc.Mirror != "":
		return rc.Mirror
	case rc.Root != "":
		return rc.Root
	default:
		return filepath.Join(cacheRoot, name)
	}
}

func buildRepository(name string, rc RepoConfig, cacheRoot string, clients map[string]repo.SecureClient) (repo.Repository, error) {
	root := resolveRoot(name, rc, cacheRoot)

	switch {
	case rc.Mirror != "":
		if rc.URL != "" {
			return nil, fmt.Errorf("repository %q: mirror and url are mutually exclusive", name)
		}
		if rc.Secure {
			return nil, fmt.Errorf("repository %q: a local mirror cannot be marked secure", name)
		}
		return repo.Local{Root: rc.Mirror}, nil

	case rc.Secure:
		client, ok := clients[name]
		if !ok {
			return nil, fmt.Errorf("repository %q is marked secure but no verifier is registered for it", name)
		}
		return repo.Secure{Root: root, Client: client}, nil

	case rc.URL != "":
		layoutName := rc.Layout
		if layoutName == "" {
			layoutName = "package"
		}
		layout, err := repo.ParseLayout(layoutName)
		if err != nil {
			return nil, fmt.Errorf("repository %q: %w", name, err)
		}
		return repo.Remote{URL: rc.URL, Root: root, Layout: layout}, nil

	default:
		return nil, fmt.Errorf("repository %q: either url or mirror is required", name)
	}
}
