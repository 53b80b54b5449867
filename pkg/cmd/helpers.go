package cmd

import (
	"log"
	"os"

	"github.com/Heather/cabal/pkg/config"
	"github.com/Heather/cabal/pkg/fetch"
	"github.com/Heather/cabal/pkg/transport"
)

// resolveManifestPath prefers a project-local cabal.toml in the working
// directory and falls back to the global manifest.
func resolveManifestPath() (string, error) {
	if _, err := os.Stat(config.ManifestFileName); err == nil {
		return config.ManifestFileName, nil
	}
	return config.GlobalManifestPath()
}

// loadManifest loads the manifest and applies developer overrides.
func loadManifest() (*config.Config, error) {
	path, err := resolveManifestPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if DevCfg != nil && DevCfg.CacheRoot != "" {
		cfg.Cache.Root = DevCfg.CacheRoot
	}
	return cfg, nil
}

func newTransport() *transport.Client {
	t := transport.New()
	if DevCfg != nil {
		t.AllowInsecure = DevCfg.AllowInsecure
	}
	return t
}

func newFetcher() *fetch.Fetcher {
	return &fetch.Fetcher{
		Transport: newTransport(),
		Logger:    log.New(os.Stderr, "", 0),
	}
}
