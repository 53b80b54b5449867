package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the default Transport, backed by net/http. The zero value is
// usable: plain http URLs are refused unless AllowInsecure is set.
type Client struct {
	// HTTP performs the requests; http.DefaultClient when nil.
	HTTP HTTPClient
	// AllowInsecure permits transfers over plain http. Off by default.
	AllowInsecure bool
}

var _ Transport = &Client{}

func New() *Client {
	return &Client{}
}

func (c *Client) CheckSecure(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	if u.Scheme == "https" || c.AllowInsecure {
		return nil
	}
	return &InsecureTransportError{URL: rawURL}
}

func (c *Client) Download(ctx context.Context, rawURL, dest string) error {
	resp, err := c.get(ctx, rawURL, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: rawURL, Status: resp.StatusCode}
	}

	return writeAtomic(dest, resp.Body)
}

// etagSuffix names the sidecar file holding the ETag of the last
// successfully downloaded copy of an index.
const etagSuffix = ".etag"

func (c *Client) DownloadIndex(ctx context.Context, rawURL, dest string) (Result, error) {
	var etag string
	if data, err := os.ReadFile(dest + etagSuffix); err == nil && fileExists(dest) {
		etag = string(data)
	}

	resp, err := c.get(ctx, rawURL, etag)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return NotModified, nil
	case http.StatusOK:
	default:
		return 0, &TransportError{URL: rawURL, Status: resp.StatusCode}
	}

	if err := writeAtomic(dest, resp.Body); err != nil {
		return 0, err
	}

	if tag := resp.Header.Get("ETag"); tag != "" {
		if err := writeAtomic(dest+etagSuffix, strings.NewReader(tag)); err != nil {
			return 0, fmt.Errorf("writing etag sidecar: %w", err)
		}
	}

	return Downloaded, nil
}

func (c *Client) get(ctx context.Context, rawURL, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	return resp, nil
}

// writeAtomic streams body into dest via a temp file in the same directory
// plus a rename, so a failed transfer never leaves a partial file at dest
// and concurrent writers of identical content converge.
func writeAtomic(dest string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}

	success = true
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
