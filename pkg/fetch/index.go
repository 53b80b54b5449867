package fetch

import (
	"context"
	"fmt"
	"os"

	"github.com/Heather/cabal/pkg/repo"
	"github.com/Heather/cabal/pkg/transport"
)

// DownloadIndex refreshes a remote repository's package index into its cache
// root, creating the directory if needed. The transport decides, via
// conditional request semantics, whether the index actually changed; the
// index contents are never inspected here.
func DownloadIndex(ctx context.Context, t transport.Transport, r repo.Remote) (transport.Result, error) {
	srcURL := r.IndexURL()
	if err := t.CheckSecure(srcURL); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(r.CacheRoot(), dirPerm); err != nil {
		return 0, fmt.Errorf("creating index cache directory: %w", err)
	}

	return t.DownloadIndex(ctx, srcURL, repo.IndexFile(r))
}
