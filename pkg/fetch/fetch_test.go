package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Heather/cabal/pkg/location"
	"github.com/Heather/cabal/pkg/pkgid"
	"github.com/Heather/cabal/pkg/repo"
	"github.com/Heather/cabal/pkg/transport"
)

// fakeTransport records calls and writes canned content on download.
type fakeTransport struct {
	mu        sync.Mutex
	checked   []string
	downloads []string

	body      string
	secureErr error
	dlErr     error
	dlDelay   time.Duration
	indexRes  transport.Result
}

var _ transport.Transport = &fakeTransport{}

func (f *fakeTransport) CheckSecure(rawURL string) error {
	f.mu.Lock()
	f.checked = append(f.checked, rawURL)
	f.mu.Unlock()
	return f.secureErr
}

func (f *fakeTransport) Download(ctx context.Context, rawURL, dest string) error {
	if f.dlDelay > 0 {
		time.Sleep(f.dlDelay)
	}
	f.mu.Lock()
	f.downloads = append(f.downloads, rawURL)
	f.mu.Unlock()
	if f.dlErr != nil {
		return f.dlErr
	}
	return os.WriteFile(dest, []byte(f.body), 0o644)
}

func (f *fakeTransport) DownloadIndex(ctx context.Context, rawURL, dest string) (transport.Result, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, rawURL)
	f.mu.Unlock()
	if f.indexRes == transport.Downloaded {
		if err := os.WriteFile(dest, []byte(f.body), 0o644); err != nil {
			return 0, err
		}
	}
	return f.indexRes, nil
}

func (f *fakeTransport) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

func mustID(t *testing.T, s string) pkgid.ID {
	t.Helper()
	id, err := pkgid.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return id
}

func TestFetchRemoteMirror(t *testing.T) {
	root := t.TempDir()
	r := repo.Remote{URL: "https://hackage.example/packages", Root: root}
	id := mustID(t, "foo-1.0")
	ft := &fakeTransport{body: "tarball bytes"}
	f := &Fetcher{Transport: ft}

	res, err := f.Fetch(context.Background(), location.RepoTarball{Repo: r, ID: id})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	wantPath := filepath.Join(root, "foo", "1.0", "foo-1.0.tar.gz")
	if res.LocalPath() != wantPath {
		t.Errorf("LocalPath = %q, want %q", res.LocalPath(), wantPath)
	}

	rr, ok := res.(location.ResolvedRepo)
	if !ok {
		t.Fatalf("resolved as %T, want ResolvedRepo", res)
	}
	if rr.ID.String() != "foo-1.0" {
		t.Errorf("resolved id = %s, want foo-1.0", rr.ID)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	if string(data) != "tarball bytes" {
		t.Errorf("cache content = %q", data)
	}

	wantURL := "https://hackage.example/packages/foo/1.0/foo-1.0.tar.gz"
	if len(ft.downloads) != 1 || ft.downloads[0] != wantURL {
		t.Errorf("downloads = %v, want [%s]", ft.downloads, wantURL)
	}
	if len(ft.checked) != 1 || ft.checked[0] != wantURL {
		t.Errorf("secure checks = %v, want [%s]", ft.checked, wantURL)
	}
}

func TestFetchRemoteMirrorAlreadyCached(t *testing.T) {
	root := t.TempDir()
	r := repo.Remote{URL: "https://hackage.example", Root: root}
	id := mustID(t, "foo-1.0")

	cached := repo.CacheFile(r, id)
	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cached, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	ft := &fakeTransport{}
	f := &Fetcher{Transport: ft}

	res, err := f.Fetch(context.Background(), location.RepoTarball{Repo: r, ID: id})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.LocalPath() != cached {
		t.Errorf("LocalPath = %q, want %q", res.LocalPath(), cached)
	}
	if ft.downloadCount() != 0 || len(ft.checked) != 0 {
		t.Errorf("network touched for cached artifact: downloads=%v checks=%v", ft.downloads, ft.checked)
	}
}

func TestFetchIdempotent(t *testing.T) {
	root := t.TempDir()
	r := repo.Remote{URL: "https://hackage.example", Root: root}
	id := mustID(t, "foo-1.0")
	ft := &fakeTransport{body: "tarball bytes"}
	f := &Fetcher{Transport: ft}
	loc := location.RepoTarball{Repo: r, ID: id}

	first, err := f.Fetch(context.Background(), loc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Fetch(context.Background(), loc)
	if err != nil {
		t.Fatal(err)
	}

	if first.LocalPath() != second.LocalPath() {
		t.Errorf("paths differ: %q vs %q", first.LocalPath(), second.LocalPath())
	}
	if ft.downloadCount() != 1 {
		t.Errorf("downloads = %d, want 1", ft.downloadCount())
	}

	data, err := os.ReadFile(second.LocalPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "tarball bytes" {
		t.Errorf("cache content = %q after repeat fetch", data)
	}
}

func TestFetchLocalMirror(t *testing.T) {
	root := t.TempDir()
	r := repo.Local{Root: root}
	present := mustID(t, "foo-1.0")
	absent := mustID(t, "bar-2.0")

	path := repo.CacheFile(r, present)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("synced"), 0o644); err != nil {
		t.Fatal(err)
	}

	ft := &fakeTransport{}
	f := &Fetcher{Transport: ft}

	res, err := f.Fetch(context.Background(), location.RepoTarball{Repo: r, ID: present})
	if err != nil {
		t.Fatalf("Fetch(present): %v", err)
	}
	if res.LocalPath() != path {
		t.Errorf("LocalPath = %q, want %q", res.LocalPath(), path)
	}

	_, err = f.Fetch(context.Background(), location.RepoTarball{Repo: r, ID: absent})
	var missing *MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("Fetch(absent) = %v, want MissingArtifactError", err)
	}
	if missing.ID.String() != "bar-2.0" {
		t.Errorf("missing id = %s, want bar-2.0", missing.ID)
	}
	if ft.downloadCount() != 0 {
		t.Errorf("local mirror fetch hit the network")
	}
}

type fakeSecureClient struct {
	body string
	err  error

	calls int
}

func (c *fakeSecureClient) DownloadVerified(ctx context.Context, id pkgid.ID, dest string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(dest, []byte(c.body), 0o644)
}

func TestFetchSecureMirror(t *testing.T) {
	root := t.TempDir()
	client := &fakeSecureClient{body: "verified bytes"}
	r := repo.Secure{Root: root, Client: client}
	id := mustID(t, "foo-1.0")
	f := &Fetcher{Transport: &fakeTransport{}}

	res, err := f.Fetch(context.Background(), location.RepoTarball{Repo: r, ID: id})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(res.LocalPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "verified bytes" {
		t.Errorf("content = %q", data)
	}
	if client.calls != 1 {
		t.Errorf("client calls = %d, want 1", client.calls)
	}
}

func TestFetchSecureMirrorVerificationFailure(t *testing.T) {
	root := t.TempDir()
	verifyErr := errors.New("signature does not match any trusted key")
	r := repo.Secure{Root: root, Client: &fakeSecureClient{err: verifyErr}}
	id := mustID(t, "foo-1.0")
	f := &Fetcher{Transport: &fakeTransport{}}

	_, err := f.Fetch(context.Background(), location.RepoTarball{Repo: r, ID: id})
	if !errors.Is(err, verifyErr) {
		t.Fatalf("Fetch = %v, want the verification error untouched", err)
	}
	if _, err := os.Stat(repo.CacheFile(r, id)); !os.IsNotExist(err) {
		t.Errorf("file present at cache path after verification failure")
	}
}

func TestFetchRemoteTarball(t *testing.T) {
	tmp := t.TempDir()
	ft := &fakeTransport{body: "remote bytes"}
	f := &Fetcher{Transport: ft, TempDir: tmp}

	res, err := f.Fetch(context.Background(), location.RemoteTarball{URL: "https://example.com/foo.tar.gz"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if dir := filepath.Dir(res.LocalPath()); dir != tmp {
		t.Errorf("downloaded to %q, want inside %q", res.LocalPath(), tmp)
	}
	data, err := os.ReadFile(res.LocalPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "remote bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchInsecureURLRefused(t *testing.T) {
	insecure := &transport.InsecureTransportError{URL: "http://example.com/foo.tar.gz"}
	ft := &fakeTransport{secureErr: insecure}
	f := &Fetcher{Transport: ft, TempDir: t.TempDir()}

	_, err := f.Fetch(context.Background(), location.RemoteTarball{URL: "http://example.com/foo.tar.gz"})
	var got *transport.InsecureTransportError
	if !errors.As(err, &got) {
		t.Fatalf("Fetch = %v, want InsecureTransportError", err)
	}
	if ft.downloadCount() != 0 {
		t.Errorf("download attempted despite failed secure check")
	}
}

func TestFetchLocalVariantsPassThrough(t *testing.T) {
	// No transport at all: local variants must not need one.
	f := &Fetcher{}

	res, err := f.Fetch(context.Background(), location.LocalUnpacked{Dir: "/src/foo"})
	if err != nil {
		t.Fatal(err)
	}
	if res.LocalPath() != "/src/foo" {
		t.Errorf("LocalPath = %q", res.LocalPath())
	}

	res, err = f.Fetch(context.Background(), location.LocalTarball{Path: "/src/foo-1.0.tar.gz"})
	if err != nil {
		t.Fatal(err)
	}
	if res.LocalPath() != "/src/foo-1.0.tar.gz" {
		t.Errorf("LocalPath = %q", res.LocalPath())
	}
}

func TestFetchRepoTarballSingleFlight(t *testing.T) {
	root := t.TempDir()
	r := repo.Remote{URL: "https://hackage.example", Root: root}
	id := mustID(t, "foo-1.0")
	ft := &fakeTransport{body: "tarball bytes", dlDelay: 20 * time.Millisecond}
	f := &Fetcher{Transport: ft}

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.FetchRepoTarball(context.Background(), r, id)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	if got := ft.downloadCount(); got != 1 {
		t.Errorf("downloads = %d, want 1 (concurrent fetches must collapse)", got)
	}
}

func TestFetchAll(t *testing.T) {
	root := t.TempDir()
	r := repo.Remote{URL: "https://hackage.example", Root: root}
	ft := &fakeTransport{body: "tarball bytes"}
	f := &Fetcher{Transport: ft}

	var locs []location.Location
	for i := 0; i < 5; i++ {
		locs = append(locs, location.RepoTarball{Repo: r, ID: mustID(t, fmt.Sprintf("pkg%d-1.%d", i, i))})
	}

	results, err := f.FetchAll(context.Background(), locs)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != len(locs) {
		t.Fatalf("results = %d, want %d", len(results), len(locs))
	}
	for i, res := range results {
		id := locs[i].(location.RepoTarball).ID
		want := repo.CacheFile(r, id)
		if res.LocalPath() != want {
			t.Errorf("result %d path = %q, want %q", i, res.LocalPath(), want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("result %d not on disk: %v", i, err)
		}
	}
}

func TestFetchAllFirstErrorWins(t *testing.T) {
	r := repo.Local{Root: t.TempDir()}
	f := &Fetcher{Transport: &fakeTransport{}}

	_, err := f.FetchAll(context.Background(), []location.Location{
		location.LocalUnpacked{Dir: "/src/ok"},
		location.RepoTarball{Repo: r, ID: mustID(t, "gone-1.0")},
	})
	var missing *MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("FetchAll = %v, want MissingArtifactError", err)
	}
}
