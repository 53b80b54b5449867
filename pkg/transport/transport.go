package transport

import (
	"context"
	"fmt"
)

// Result distinguishes a transfer that produced new bytes from one the
// remote reported as unchanged.
type Result int

const (
	Downloaded Result = iota
	NotModified
)

func (r Result) String() string {
	switch r {
	case Downloaded:
		return "downloaded"
	case NotModified:
		return "not modified"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Transport moves bytes from a URL to a local path. Implementations own all
// socket-level concerns (TLS, redirects, proxies, timeouts); callers own
// retry policy. A Transport must never leave a partial file at dest: either
// the transfer succeeds and dest holds the complete body, or dest is
// untouched.
type Transport interface {
	// CheckSecure verifies the URL can be fetched over a secure channel.
	// It returns an *InsecureTransportError when the transfer would happen
	// in plaintext and policy forbids that. No bytes move.
	CheckSecure(rawURL string) error

	// Download fetches the URL into dest atomically.
	Download(ctx context.Context, rawURL, dest string) error

	// DownloadIndex fetches the URL into dest atomically, using
	// conditional-request semantics where the remote supports them: when
	// the remote reports the content unchanged since the last fetch, the
	// existing dest is left as-is and NotModified is returned.
	DownloadIndex(ctx context.Context, rawURL, dest string) (Result, error)
}

// TransportError is a network-level failure: the request could not be made,
// or the remote answered with a non-success status. It is surfaced verbatim;
// nothing in this module retries.
type TransportError struct {
	URL    string
	Status int // HTTP status, 0 when the request never got a response
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InsecureTransportError means the secure-channel requirement cannot be met
// for a URL. It is fatal: the transfer is never silently downgraded to
// plaintext.
type InsecureTransportError struct {
	URL string
}

func (e *InsecureTransportError) Error() string {
	return fmt.Sprintf("refusing insecure transfer of %s: https is required (or opt in to plain http explicitly)", e.URL)
}
