package location

import (
	"os"

	"github.com/Heather/cabal/pkg/pkgid"
	"github.com/Heather/cabal/pkg/repo"
)

// Location describes where a package artifact might live before anything is
// guaranteed to exist locally. Exactly four variants exist; dispatch is a
// type switch over them, and an unknown variant is a caller error, never a
// silent fallthrough.
type Location interface {
	location()
}

// LocalUnpacked is a directory already containing unpacked sources. Always
// present by definition.
type LocalUnpacked struct {
	Dir string
}

// LocalTarball is a tarball already on disk. Always present by definition.
type LocalTarball struct {
	Path string
}

// RemoteTarball is a plain URL. Cached, when non-empty, is a local path the
// tarball is already known to be downloaded to.
type RemoteTarball struct {
	URL    string
	Cached string
}

// RepoTarball references a package inside a repository. Cached, when
// non-empty, is a local path the tarball is already known to be cached at.
type RepoTarball struct {
	Repo   repo.Repository
	ID     pkgid.ID
	Cached string
}

var (
	_ Location = LocalUnpacked{}
	_ Location = LocalTarball{}
	_ Location = RemoteTarball{}
	_ Location = RepoTarball{}
)

func (LocalUnpacked) location() {}
func (LocalTarball) location()  {}
func (RemoteTarball) location() {}
func (RepoTarball) location()   {}

// Resolved is a location whose artifact is guaranteed to exist on disk.
// It is the only type build steps may read bytes through.
type Resolved interface {
	// LocalPath is the existing local file or directory for this artifact.
	LocalPath() string

	resolved()
}

// ResolvedUnpacked is a resolved LocalUnpacked.
type ResolvedUnpacked struct {
	Dir string
}

// ResolvedTarball is a resolved LocalTarball.
type ResolvedTarball struct {
	Path string
}

// ResolvedRemote is a resolved RemoteTarball: the URL plus the local path it
// was downloaded to.
type ResolvedRemote struct {
	URL  string
	Path string
}

// ResolvedRepo is a resolved RepoTarball: the repository reference plus the
// cache file the tarball lives at.
type ResolvedRepo struct {
	Repo repo.Repository
	ID   pkgid.ID
	Path string
}

var (
	_ Resolved = ResolvedUnpacked{}
	_ Resolved = ResolvedTarball{}
	_ Resolved = ResolvedRemote{}
	_ Resolved = ResolvedRepo{}
)

func (r ResolvedUnpacked) LocalPath() string { return r.Dir }
func (r ResolvedTarball) LocalPath() string  { return r.Path }
func (r ResolvedRemote) LocalPath() string   { return r.Path }
func (r ResolvedRepo) LocalPath() string     { return r.Path }

func (ResolvedUnpacked) resolved() {}
func (ResolvedTarball) resolved()  {}
func (ResolvedRemote) resolved()   {}
func (ResolvedRepo) resolved()     {}

// IsFetched reports whether the artifact is already materialized locally.
// Local variants are always fetched. A RepoTarball without an attached cache
// path is probed on disk at its canonical cache file. The check is advisory:
// nothing stops the file appearing or vanishing between this call and a
// later fetch, which is why cache writes are atomic.
func IsFetched(loc Location) bool {
	switch l := loc.(type) {
	case LocalUnpacked, LocalTarball:
		return true
	case RemoteTarball:
		return l.Cached != ""
	case RepoTarball:
		if l.Cached != "" {
			return true
		}
		return fileExists(repo.CacheFile(l.Repo, l.ID))
	}
	return false
}

// CheckFetched resolves a location without performing any I/O. Local
// variants and variants carrying a cached path resolve immediately; a
// RemoteTarball or RepoTarball without one reports false, meaning a fetch is
// needed. A resolution is always complete: there is no partial form.
func CheckFetched(loc Location) (Resolved, bool) {
	switch l := loc.(type) {
	case LocalUnpacked:
		return ResolvedUnpacked{Dir: l.Dir}, true
	case LocalTarball:
		return ResolvedTarball{Path: l.Path}, true
	case RemoteTarball:
		if l.Cached != "" {
			return ResolvedRemote{URL: l.URL, Path: l.Cached}, true
		}
	case RepoTarball:
		if l.Cached != "" {
			return ResolvedRepo{Repo: l.Repo, ID: l.ID, Path: l.Cached}, true
		}
	}
	return nil, false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
