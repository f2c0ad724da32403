package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

// userAgent identifies the collector to feed operators.
const userAgent = "gtfs-collector/1.0"

// Fetcher performs single-attempt HTTP GETs against feed URLs. One Fetcher
// owns one connection pool; create it once per process, share it across
// concurrent fetches, and Close it on shutdown.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch issues one GET against url and returns the full response body.
// Timeouts map to ErrTimeout, connection problems to ErrNetwork, and any
// non-200 response to ErrHTTPStatus carrying the code. There are no
// retries; the next scheduled cycle is the retry.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, feed.Errf(feed.ErrNetwork, "building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, feed.HTTPStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(fmt.Errorf("reading body from %s: %w", url, err))
	}
	return body, nil
}

// Close releases pooled connections. Call once on shutdown.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func classify(err error) *feed.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return feed.Wrap(feed.ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return feed.Wrap(feed.ErrTimeout, err)
	}
	return feed.Wrap(feed.ErrNetwork, err)
}
