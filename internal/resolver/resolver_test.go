package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/domain/devtools"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/monitoring"
	"github.com/cenkalti/backoff/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const browserPath = "/devtools/browser/xyz"

// fakeFetcher answers per base URL: a base listed in ok succeeds after
// failFirst[base] failed attempts, every other base is unreachable.
type fakeFetcher struct {
	mu        sync.Mutex
	ok        map[string]bool
	failFirst map[string]int
	malformed map[string]bool
	calls     map[string][]time.Time
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		ok:        make(map[string]bool),
		failFirst: make(map[string]int),
		malformed: make(map[string]bool),
		calls:     make(map[string][]time.Time),
	}
}

func (f *fakeFetcher) FetchVersion(ctx context.Context, baseURL string) (*devtools.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[baseURL] = append(f.calls[baseURL], time.Now())
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	if f.malformed[baseURL] {
		return nil, devtools.ErrMissingDebuggerURL
	}
	if !f.ok[baseURL] || len(f.calls[baseURL]) <= f.failFirst[baseURL] {
		return nil, fmt.Errorf("%w: connection refused", ErrUpstreamUnreachable)
	}
	return &devtools.VersionInfo{
		Browser:              "HeadlessChrome/120.0",
		WebSocketDebuggerURL: "ws://127.0.0.1:9222" + browserPath,
	}, nil
}

func (f *fakeFetcher) attempts(baseURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[baseURL])
}

type verifierFunc func(ctx context.Context, url string) error

func (fn verifierFunc) Verify(ctx context.Context, url string) error { return fn(ctx, url) }

func candidate(name, base string, retries int) Candidate {
	return Candidate{Name: name, BaseURL: base, Retries: retries, Delay: time.Millisecond, Policy: PolicyFixed}
}

func TestResolveFirstCandidate(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.ok["http://a:9222"] = true

	r := New(WithFetcher(fetcher), WithLogger(zaptest.NewLogger(t)))
	res, err := r.Resolve(context.Background(), []Candidate{
		candidate("a", "http://a:9222", 3),
		candidate("b", "http://b:9222", 3),
	})

	require.NoError(t, err)
	assert.Equal(t, "ws://a:9222"+browserPath, res.WebSocketURL)
	assert.Equal(t, "a", res.Candidate.Name)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Failures)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 0, fetcher.attempts("http://b:9222"))
}

func TestResolveRewritesAgainstCandidateBase(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"tls proxy with port", "https://host:443", "wss://host:443" + browserPath},
		{"tls proxy", "https://sandbox.example.com", "wss://sandbox.example.com" + browserPath},
		{"plain", "http://10.0.0.7:9222", "ws://10.0.0.7:9222" + browserPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.ok[tt.base] = true

			res, err := New(WithFetcher(fetcher)).Resolve(context.Background(), []Candidate{candidate("c", tt.base, 1)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.WebSocketURL)
		})
	}
}

func TestResolveSpendsWholeBudgetBeforeFailover(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.ok["http://b:9222"] = true

	res, err := New(WithFetcher(fetcher)).Resolve(context.Background(), []Candidate{
		candidate("a", "http://a:9222", 3),
		candidate("b", "http://b:9222", 3),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.attempts("http://a:9222"))
	assert.Equal(t, "ws://b:9222"+browserPath, res.WebSocketURL)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "a", res.Failures[0].Candidate.Name)
	assert.Equal(t, 3, res.Failures[0].Attempts)
	assert.Len(t, res.Failures[0].Errors, 3)
}

func TestResolveRecoversWithinBudget(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.ok["http://a:9222"] = true
	fetcher.failFirst["http://a:9222"] = 2

	res, err := New(WithFetcher(fetcher)).Resolve(context.Background(), []Candidate{
		candidate("a", "http://a:9222", 3),
		candidate("b", "http://b:9222", 3),
	})

	require.NoError(t, err)
	assert.Equal(t, "a", res.Candidate.Name)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 0, fetcher.attempts("http://b:9222"))
}

func TestResolveSingleAttemptBudgetFailsOver(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.ok["http://b:9222"] = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := New(WithFetcher(fetcher)).Resolve(ctx, []Candidate{
		candidate("a", "http://a:9222", 1),
		candidate("b", "http://b:9222", 1),
	})

	require.NoError(t, err)
	assert.Equal(t, "b", res.Candidate.Name)
	assert.Equal(t, 1, fetcher.attempts("http://a:9222"))
	assert.Equal(t, 1, fetcher.attempts("http://b:9222"))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Attempts)
}

func TestResolveExhausted(t *testing.T) {
	fetcher := newFakeFetcher()
	metrics := monitoring.NewMetrics()

	_, err := New(WithFetcher(fetcher), WithMetrics(metrics)).Resolve(context.Background(), []Candidate{
		candidate("a", "http://a:9222", 2),
		candidate("b", "http://b:9222", 1),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionExhausted)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 2)

	assert.Equal(t, "a", exhausted.Failures[0].Candidate.Name)
	assert.Equal(t, 2, exhausted.Failures[0].Attempts)
	assert.Len(t, exhausted.Failures[0].Errors, 2)
	assert.ErrorIs(t, exhausted.Failures[0].LastError(), ErrUpstreamUnreachable)

	assert.Equal(t, "b", exhausted.Failures[1].Candidate.Name)
	assert.Equal(t, 1, exhausted.Failures[1].Attempts)

	assert.Contains(t, err.Error(), "a [http://a:9222] failed 2 attempt(s)")
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ResolverAttempts.WithLabelValues("a", resultUnreachable)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ResolverResolutions.WithLabelValues(resultExhausted)))
}

func TestResolveMalformedMetadataCountsAsFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.malformed["http://a:9222"] = true
	fetcher.ok["http://b:9222"] = true
	metrics := monitoring.NewMetrics()

	res, err := New(WithFetcher(fetcher), WithMetrics(metrics)).Resolve(context.Background(), []Candidate{
		candidate("a", "http://a:9222", 2),
		candidate("b", "http://b:9222", 1),
	})

	require.NoError(t, err)
	assert.Equal(t, "b", res.Candidate.Name)
	assert.ErrorIs(t, res.Failures[0].LastError(), devtools.ErrMalformedMetadata)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ResolverAttempts.WithLabelValues("a", resultMalformed)))
}

func TestResolveVerification(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.ok["https://proxy.example.com"] = true
	fetcher.ok["http://10.0.0.7:9222"] = true

	var verified []string
	verifier := verifierFunc(func(_ context.Context, url string) error {
		verified = append(verified, url)
		if url == "wss://proxy.example.com"+browserPath {
			return errors.New("bad handshake")
		}
		return nil
	})

	res, err := New(WithFetcher(fetcher), WithVerifier(verifier)).Resolve(context.Background(), []Candidate{
		candidate("proxied", "https://proxy.example.com", 2),
		candidate("direct", "http://10.0.0.7:9222", 1),
	})

	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.7:9222"+browserPath, res.WebSocketURL)
	assert.Len(t, verified, 3)
	assert.ErrorIs(t, res.Failures[0].LastError(), ErrVerificationFailed)
}

func TestResolveStopsOnCancel(t *testing.T) {
	fetcher := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithFetcher(fetcher)).Resolve(ctx, []Candidate{
		candidate("a", "http://a:9222", 5),
		candidate("b", "http://b:9222", 5),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrResolutionExhausted)
	assert.Equal(t, 1, fetcher.attempts("http://a:9222"))
	assert.Equal(t, 0, fetcher.attempts("http://b:9222"))
}

func TestResolveCancelDuringWait(t *testing.T) {
	fetcher := newFakeFetcher()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	slow := Candidate{Name: "a", BaseURL: "http://a:9222", Retries: 5, Delay: time.Hour, Policy: PolicyFixed}

	start := time.Now()
	_, err := New(WithFetcher(fetcher)).Resolve(ctx, []Candidate{slow, candidate("b", "http://b:9222", 1)})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, fetcher.attempts("http://a:9222"))
	assert.Equal(t, 0, fetcher.attempts("http://b:9222"))
}

func TestResolveRejectsInvalidCandidates(t *testing.T) {
	r := New(WithFetcher(newFakeFetcher()))

	_, err := r.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = r.Resolve(context.Background(), []Candidate{candidate("a", "ftp://a", 1)})
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestFixedPolicyWaitsBetweenAttempts(t *testing.T) {
	fetcher := newFakeFetcher()
	c := Candidate{Name: "a", BaseURL: "http://a:9222", Retries: 3, Delay: 20 * time.Millisecond, Policy: PolicyFixed}

	_, err := New(WithFetcher(fetcher)).Resolve(context.Background(), []Candidate{c})
	require.Error(t, err)

	calls := fetcher.calls["http://a:9222"]
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), 20*time.Millisecond)
	}
}

func TestCandidateBackOffHonorsBudget(t *testing.T) {
	for _, policy := range []Policy{PolicyFixed, PolicyLinear} {
		c := Candidate{Name: "a", BaseURL: "http://a:9222", Retries: 1, Delay: time.Millisecond, Policy: policy}
		assert.Equal(t, backoff.Stop, c.backOff().NextBackOff(), "policy %s", policy)

		c.Retries = 3
		b := c.backOff()
		assert.NotEqual(t, backoff.Stop, b.NextBackOff())
		assert.NotEqual(t, backoff.Stop, b.NextBackOff())
		assert.Equal(t, backoff.Stop, b.NextBackOff(), "policy %s", policy)
	}
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{step: 10 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 30*time.Millisecond, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
}

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok/json/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Browser":"HeadlessChrome/120.0","Protocol-Version":"1.3","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/xyz"}`)
	})
	mux.HandleFunc("/broken/json/version", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "starting", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/garbage/json/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewHTTPFetcher(time.Second)
	ctx := context.Background()

	info, err := fetcher.FetchVersion(ctx, srv.URL+"/ok/")
	require.NoError(t, err)
	assert.Equal(t, "HeadlessChrome/120.0", info.Browser)
	assert.Equal(t, "ws://127.0.0.1:9222"+browserPath, info.WebSocketDebuggerURL)

	_, err = fetcher.FetchVersion(ctx, srv.URL+"/broken")
	assert.ErrorIs(t, err, ErrUpstreamUnreachable)

	_, err = fetcher.FetchVersion(ctx, srv.URL+"/garbage")
	assert.ErrorIs(t, err, devtools.ErrMalformedMetadata)

	srv.Close()
	_, err = fetcher.FetchVersion(ctx, srv.URL+"/ok")
	assert.ErrorIs(t, err, ErrUpstreamUnreachable)
}

func TestCDPVerifierRejectsDeadURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + srv.URL[len("http"):] + browserPath
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := CDPVerifier{}.Verify(ctx, url)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}
