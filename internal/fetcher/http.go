package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the HTTP CKAN client.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
}

// HTTPClient implements Client against a CKAN API using net/http with
// retry and rate limiting. The datastore is a shared public service, so
// requests go through a process-wide limiter.
type HTTPClient struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

// NewHTTPClient creates an HTTPClient with the given options.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "triagency/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), int(math.Ceil(opts.RatePerSec))),
	}
}

// permanentError marks failures that retrying cannot fix, such as client
// errors and API-level rejections.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// apiEnvelope is the standard CKAN action API response wrapper.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// DatastoreSearch returns one page of datastore records for a resource,
// filtered to a single owner_org.
func (c *HTTPClient) DatastoreSearch(ctx context.Context, resourceID, ownerOrg string, limit, offset int) (*Page, error) {
	filters, err := json.Marshal(map[string]string{"owner_org": ownerOrg})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: marshal filters")
	}

	params := url.Values{}
	params.Set("resource_id", resourceID)
	params.Set("filters", string(filters))
	params.Set("limit", fmt.Sprint(limit))
	params.Set("offset", fmt.Sprint(offset))

	var result struct {
		Total   int              `json:"total"`
		Records []map[string]any `json:"records"`
	}
	if err := c.getAction(ctx, "datastore_search", params, &result); err != nil {
		return nil, err
	}

	return &Page{Records: result.Records, Total: result.Total}, nil
}

// PackageModified returns the dataset's metadata_modified stamp.
func (c *HTTPClient) PackageModified(ctx context.Context, datasetID string) (string, error) {
	params := url.Values{}
	params.Set("id", datasetID)

	var result struct {
		MetadataModified string `json:"metadata_modified"`
	}
	if err := c.getAction(ctx, "package_show", params, &result); err != nil {
		return "", err
	}
	return result.MetadataModified, nil
}

// getAction performs a rate-limited GET against a CKAN action endpoint
// with retry and exponential backoff, decoding the result into out.
func (c *HTTPClient) getAction(ctx context.Context, action string, params url.Values, out any) error {
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("action", action))
	endpoint := c.opts.BaseURL + "/" + action + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			backoff += time.Duration(rand.Int64N(int64(time.Second)))
			log.Warn("retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.doOnce(ctx, endpoint, out)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return eris.Wrapf(lastErr, "fetcher: %s failed", action)
		}
	}

	return eris.Wrapf(lastErr, "fetcher: %s failed after %d retries", action, c.opts.MaxRetries)
}

func (c *HTTPClient) doOnce(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eris.Wrap(err, "fetcher: build request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "fetcher: do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return eris.Errorf("fetcher: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &permanentError{eris.Errorf("fetcher: status %d: %s", resp.StatusCode, string(body))}
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return eris.Wrap(err, "fetcher: decode response")
	}
	if !envelope.Success {
		return &permanentError{eris.Errorf("fetcher: API error: %s", envelope.Error.Message)}
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return eris.Wrap(err, "fetcher: decode result")
	}

	return nil
}
