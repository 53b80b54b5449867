package fetch

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Heather/cabal/pkg/location"
	"github.com/Heather/cabal/pkg/pkgid"
	"github.com/Heather/cabal/pkg/repo"
	"github.com/Heather/cabal/pkg/transport"
)

const dirPerm = 0o755

// DefaultParallel bounds concurrent downloads in FetchAll.
const DefaultParallel = 4

// Fetcher materializes package locations into local files. Fetches for
// different packages are safe to run concurrently; fetches of the same
// repository artifact are collapsed, per cache file, so the artifact is
// downloaded at most once per process. Cross-process races still converge
// because cache files are only ever placed atomically.
type Fetcher struct {
	Transport transport.Transport
	// TempDir receives plain remote tarballs that have no repository cache
	// slot. Defaults to the system temp directory.
	TempDir string
	// Logger, when set, receives operational notes ("already downloaded",
	// "downloading ..."). Nil disables them.
	Logger *log.Logger

	flight singleflight.Group
}

// Fetch resolves a location, downloading the artifact if it is not already
// local. Resolving an already-resolved-shaped location is a no-op copy;
// fetching performs at most one network transfer or one verified-client
// invocation. On failure nothing is written at any final cache path.
func (f *Fetcher) Fetch(ctx context.Context, loc location.Location) (location.Resolved, error) {
	if res, ok := location.CheckFetched(loc); ok {
		return res, nil
	}

	switch l := loc.(type) {
	case location.RemoteTarball:
		path, err := f.fetchRemoteTarball(ctx, l.URL)
		if err != nil {
			return nil, err
		}
		return location.ResolvedRemote{URL: l.URL, Path: path}, nil

	case location.RepoTarball:
		path, err := f.FetchRepoTarball(ctx, l.Repo, l.ID)
		if err != nil {
			return nil, err
		}
		return location.ResolvedRepo{Repo: l.Repo, ID: l.ID, Path: path}, nil

	default:
		return nil, fmt.Errorf("unhandled location variant %T", loc)
	}
}

// FetchAll resolves every location, fanning fetches out over at most
// DefaultParallel workers. Results are positional. The first failure cancels
// the remaining fetches and is returned.
func (f *Fetcher) FetchAll(ctx context.Context, locs []location.Location) ([]location.Resolved, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultParallel)

	results := make([]location.Resolved, len(locs))
	for i, loc := range locs {
		g.Go(func() error {
			res, err := f.Fetch(ctx, loc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchRepoTarball ensures a repository artifact is present in its cache and
// returns the cache file path. Concurrent calls for the same artifact share
// a single in-flight fetch.
func (f *Fetcher) FetchRepoTarball(ctx context.Context, r repo.Repository, id pkgid.ID) (string, error) {
	dest := repo.CacheFile(r, id)
	_, err, _ := f.flight.Do(dest, func() (any, error) {
		return nil, f.fetchRepoTarball(ctx, r, id, dest)
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

func (f *Fetcher) fetchRepoTarball(ctx context.Context, r repo.Repository, id pkgid.ID, dest string) error {
	switch rr := r.(type) {
	case repo.Local:
		// An external sync step owns the mirror's contents; all there is
		// to do is confirm the artifact arrived.
		if !fileExists(dest) {
			return &MissingArtifactError{ID: id, Path: dest}
		}
		return nil

	case repo.Remote:
		if fileExists(dest) {
			f.logf("%s has already been downloaded.", id)
			return nil
		}

		srcURL := rr.ArtifactURL(id)
		if err := f.Transport.CheckSecure(srcURL); err != nil {
			return err
		}
		if err := os.MkdirAll(repo.CacheDir(r, id), dirPerm); err != nil {
			return fmt.Errorf("creating cache directory for %s: %w", id, err)
		}

		f.logf("Downloading %s...", id)
		return f.Transport.Download(ctx, srcURL, dest)

	case repo.Secure:
		if err := os.MkdirAll(repo.CacheDir(r, id), dirPerm); err != nil {
			return fmt.Errorf("creating cache directory for %s: %w", id, err)
		}

		f.logf("Downloading %s (verified)...", id)
		// The client writes verified bytes only on success; its failures,
		// verification included, pass through untouched.
		return rr.Client.DownloadVerified(ctx, id, dest)

	default:
		return fmt.Errorf("unhandled repository kind %T", r)
	}
}

// fetchRemoteTarball downloads a bare URL into a private file under the
// fetcher's temp directory.
func (f *Fetcher) fetchRemoteTarball(ctx context.Context, srcURL string) (string, error) {
	if err := f.Transport.CheckSecure(srcURL); err != nil {
		return "", err
	}

	dir := f.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	tmp, err := os.CreateTemp(dir, "cabal-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	dest := tmp.Name()
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	f.logf("Downloading %s...", srcURL)
	if err := f.Transport.Download(ctx, srcURL, dest); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Logger != nil {
		f.Logger.Printf(format, args...)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
