package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Heather/cabal/pkg/pkgid"
)

// IndexBasename is the filename of a repository's package index, both at the
// remote endpoint and in the local cache root.
const IndexBasename = "00-index.tar.gz"

// Layout selects how a remote repository addresses artifacts. It is a static
// property of the endpoint, decided once when the repository is configured,
// never re-derived per package.
type Layout int

const (
	// LayoutLegacy addresses artifacts as <base>/<name>/<version>/<name>-<version>.tar.gz.
	LayoutLegacy Layout = iota
	// LayoutPackage addresses artifacts as <base>/package/<name>-<version>.tar.gz.
	LayoutPackage
)

func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutPackage:
		return "package"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// ParseLayout parses a layout name as it appears in configuration.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "legacy":
		return LayoutLegacy, nil
	case "package":
		return LayoutPackage, nil
	default:
		return 0, fmt.Errorf("unknown repository layout %q: expected \"legacy\" or \"package\"", s)
	}
}

// SecureClient downloads cryptographically verified artifacts. Given a
// package id and a destination path it either writes a fully verified file at
// the destination or fails without writing one; partial or unverified bytes
// must never land at dest. Verification failures are returned as-is and are
// fatal to the fetch: there is no fallback to an unverified download.
type SecureClient interface {
	DownloadVerified(ctx context.Context, id pkgid.ID, dest string) error
}

// Repository is a place versioned package artifacts live. Exactly three
// kinds exist; consumers dispatch with a type switch and must treat an
// unknown kind as an error rather than falling through silently.
type Repository interface {
	// CacheRoot returns the local directory artifacts from this repository
	// are cached under. Roots are unique per repository: two repositories
	// never share one, which keeps cache paths collision-free.
	CacheRoot() string

	repository()
}

// Local is a filesystem mirror. An external sync step populates its root;
// fetching from it never touches the network.
type Local struct {
	Root string
}

// Remote is a plain HTTP(S) repository with a local cache root.
type Remote struct {
	// URL is the base endpoint the index and artifacts are addressed under.
	URL    string
	Root   string
	Layout Layout
}

// Secure is a cryptographically verified repository. All downloads go
// through Client; artifacts are never trusted on transport alone.
type Secure struct {
	Root   string
	Client SecureClient
}

var (
	_ Repository = Local{}
	_ Repository = Remote{}
	_ Repository = Secure{}
)

func (r Local) CacheRoot() string  { return r.Root }
func (r Remote) CacheRoot() string { return r.Root }
func (r Secure) CacheRoot() string { return r.Root }

func (Local) repository()  {}
func (Remote) repository() {}
func (Secure) repository() {}

// CacheDir returns the directory a package's artifact is cached in:
// <root>/<name>/<version>.
func CacheDir(r Repository, id pkgid.ID) string {
	return filepath.Join(r.CacheRoot(), id.Name, id.Version.String())
}

// CacheFile returns the cached artifact path:
// <root>/<name>/<version>/<name>-<version>.tar.gz. The layout is fixed; any
// external tooling that pre-populates mirrors relies on it bit-exactly.
func CacheFile(r Repository, id pkgid.ID) string {
	return filepath.Join(CacheDir(r, id), id.String()+".tar.gz")
}

// IndexFile returns the local cache path of the repository's package index.
func IndexFile(r Repository) string {
	return filepath.Join(r.CacheRoot(), IndexBasename)
}

// ArtifactURL returns the remote address of a package's artifact under the
// repository's layout.
func (r Remote) ArtifactURL(id pkgid.ID) string {
	base := strings.TrimRight(r.URL, "/")
	switch r.Layout {
	case LayoutLegacy:
		return base + "/" + id.Name + "/" + id.Version.String() + "/" + id.String() + ".tar.gz"
	case LayoutPackage:
		return base + "/package/" + id.String() + ".tar.gz"
	}
	panic(fmt.Sprintf("unknown repository layout %v", r.Layout))
}

// IndexURL returns the remote address of the repository's package index.
func (r Remote) IndexURL() string {
	return strings.TrimRight(r.URL, "/") + "/" + IndexBasename
}
