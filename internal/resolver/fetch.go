package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/domain/devtools"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher retrieves the /json/version document of a candidate
type Fetcher interface {
	FetchVersion(ctx context.Context, baseURL string) (*devtools.VersionInfo, error)
}

// HTTPFetcher is the default Fetcher
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates a fetcher with a per-request timeout. Retries are
// owned by the Resolver, so the client itself never retries.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	// Pooled transport from the retryable client, without its retry loop
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "cdpgate-resolver/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &HTTPFetcher{client: client}
}

// FetchVersion returns ErrUpstreamUnreachable for transport failures and
// non-200 answers, and devtools.ErrMalformedMetadata for unusable bodies.
func (f *HTTPFetcher) FetchVersion(ctx context.Context, baseURL string) (*devtools.VersionInfo, error) {
	endpoint := strings.TrimRight(baseURL, "/") + devtools.VersionPath

	resp, err := f.client.R().SetContext(ctx).Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUpstreamUnreachable, endpoint, resp.Status())
	}

	return devtools.ParseVersion(resp.Body())
}
