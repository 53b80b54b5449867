package fetch

import (
	"fmt"

	"github.com/Heather/cabal/pkg/pkgid"
)

// MissingArtifactError means an artifact that was expected to already exist
// locally (a local mirror entry) is absent. It is surfaced to the caller
// without any retry; only the external mirror sync can fix it.
type MissingArtifactError struct {
	ID   pkgid.ID
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("package %s is not available at %s", e.ID, e.Path)
}
