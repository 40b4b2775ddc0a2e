package defillama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tj-capital/tvlsync/internal/norm"
)

// ErrUnknownDataset reports a dataset name absent from the registry.
var ErrUnknownDataset = eris.New("defillama: unknown dataset")

// RemoteError reports a non-2xx response or a transport failure from
// the data source. Status is 0 on transport failure. Fetches are not
// retried; the error is surfaced to the caller as-is.
type RemoteError struct {
	Dataset string
	URL     string
	Status  int
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("defillama: %s: HTTP %d from %s", e.Dataset, e.Status, e.URL)
	}
	return fmt.Sprintf("defillama: %s: request to %s failed: %v", e.Dataset, e.URL, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Fetcher is the extraction interface consumed by the row builders.
type Fetcher interface {
	// Fetch returns the raw JSON array for the named dataset.
	Fetch(ctx context.Context, dataset string) ([]byte, error)

	// FetchInto decodes the named dataset's array into v.
	FetchInto(ctx context.Context, dataset string, v any) error
}

// Options configures the API client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
}

// Client implements Fetcher against the live API. One GET per fetch;
// the per-host limiter is politeness, not resilience: there is no
// retry and no backoff.
type Client struct {
	http      *http.Client
	ua        string
	limiters  map[string]*rate.Limiter
	endpoints map[string]Endpoint
}

// NewClient creates a Client with the static endpoint registry.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tvlsync/1.0"
	}
	return &Client{
		http: &http.Client{Timeout: opts.Timeout},
		ua:   opts.UserAgent,
		limiters: map[string]*rate.Limiter{
			"api.llama.fi":         rate.NewLimiter(4, 4),
			"stablecoins.llama.fi": rate.NewLimiter(4, 4),
		},
		endpoints: defaultEndpoints,
	}
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err == nil {
		if lim, ok := c.limiters[u.Host]; ok {
			return lim
		}
	}
	return rate.NewLimiter(10, 10)
}

// Fetch normalizes the dataset name, resolves it against the registry,
// performs a single GET, and unwraps nested payloads.
func (c *Client) Fetch(ctx context.Context, dataset string) ([]byte, error) {
	name := norm.Name(dataset)
	ep, ok := c.endpoints[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownDataset, "%q", dataset)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "defillama: build request for %s", name)
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")

	if err := c.limiterFor(ep.URL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "defillama: rate limiter wait")
	}

	zap.L().Debug("fetching dataset", zap.String("dataset", name), zap.String("url", ep.URL))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Dataset: name, URL: ep.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Dataset: name, URL: ep.URL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Dataset: name, URL: ep.URL, Err: err}
	}

	if ep.Unwrap == "" {
		return body, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrapf(err, "defillama: %s: decode envelope", name)
	}
	raw, ok := envelope[ep.Unwrap]
	if !ok {
		return nil, eris.Errorf("defillama: %s: payload missing field %q", name, ep.Unwrap)
	}
	return raw, nil
}

// FetchInto fetches the named dataset and decodes it into v.
func (c *Client) FetchInto(ctx context.Context, dataset string, v any) error {
	body, err := c.Fetch(ctx, dataset)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "defillama: %s: decode payload", norm.Name(dataset))
	}
	return nil
}
