package repo

import (
	"path/filepath"
	"testing"

	"github.com/Heather/cabal/pkg/pkgid"
)

func mustID(t *testing.T, s string) pkgid.ID {
	t.Helper()
	id, err := pkgid.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return id
}

func TestCachePaths(t *testing.T) {
	r := Remote{URL: "http://hackage.example/packages", Root: "/cache"}
	id := mustID(t, "foo-1.2.3")

	wantDir := filepath.Join("/cache", "foo", "1.2.3")
	if got := CacheDir(r, id); got != wantDir {
		t.Errorf("CacheDir = %q, want %q", got, wantDir)
	}

	wantFile := filepath.Join(wantDir, "foo-1.2.3.tar.gz")
	if got := CacheFile(r, id); got != wantFile {
		t.Errorf("CacheFile = %q, want %q", got, wantFile)
	}

	// Deterministic across calls.
	if first, second := CacheFile(r, id), CacheFile(r, id); first != second {
		t.Errorf("CacheFile not stable: %q vs %q", first, second)
	}

	wantIndex := filepath.Join("/cache", "00-index.tar.gz")
	if got := IndexFile(r); got != wantIndex {
		t.Errorf("IndexFile = %q, want %q", got, wantIndex)
	}
}

func TestArtifactURL(t *testing.T) {
	id := mustID(t, "foo-1.2.3")

	tests := map[string]struct {
		repo Remote
		want string
	}{
		"legacy layout": {
			repo: Remote{URL: "http://hackage.example/packages", Layout: LayoutLegacy},
			want: "http://hackage.example/packages/foo/1.2.3/foo-1.2.3.tar.gz",
		},
		"package layout": {
			repo: Remote{URL: "http://hackage.example/packages", Layout: LayoutPackage},
			want: "http://hackage.example/packages/package/foo-1.2.3.tar.gz",
		},
		"trailing slash trimmed": {
			repo: Remote{URL: "http://hackage.example/packages/", Layout: LayoutLegacy},
			want: "http://hackage.example/packages/foo/1.2.3/foo-1.2.3.tar.gz",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tc.repo.ArtifactURL(id); got != tc.want {
				t.Errorf("ArtifactURL = %q, want %q", got, tc.want)
			}
		})
	}
}

// A Layout value outside the two defined kinds must not quietly render as
// one of them.
func TestArtifactURLUnknownLayout(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ArtifactURL did not panic for an out-of-range layout")
		}
	}()
	r := Remote{URL: "https://hackage.example", Layout: Layout(42)}
	r.ArtifactURL(mustID(t, "foo-1.0"))
}

func TestIndexURL(t *testing.T) {
	r := Remote{URL: "https://hackage.example/packages/"}
	want := "https://hackage.example/packages/00-index.tar.gz"
	if got := r.IndexURL(); got != want {
		t.Errorf("IndexURL = %q, want %q", got, want)
	}
}

func TestParseLayout(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    Layout
		wantErr bool
	}{
		"legacy":  {in: "legacy", want: LayoutLegacy},
		"package": {in: "package", want: LayoutPackage},
		"unknown": {in: "modern", wantErr: true},
		"empty":   {in: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseLayout(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLayout(%q) = %v, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLayout(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseLayout(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
