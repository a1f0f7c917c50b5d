package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/domain/devtools"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/shared/id"
	"github.com/cenkalti/backoff/v3"
	"go.uber.org/zap"
)

// Attempt results, also used as metric labels
const (
	resultOK                 = "ok"
	resultUnreachable        = "unreachable"
	resultMalformed          = "malformed"
	resultVerificationFailed = "verification_failed"
	resultCanceled           = "canceled"
	resultExhausted          = "exhausted"
)

// Resolution is a successful resolve
type Resolution struct {
	ID           id.ResolutionID
	Candidate    Candidate
	WebSocketURL string
	Version      *devtools.VersionInfo
	// Attempts made against the winning candidate
	Attempts int
	// Candidates that failed before the winner, in order
	Failures []CandidateFailure
}

// Resolver tries candidates in order, each with its own retry budget, and
// returns the first debugger URL rewritten against its candidate's base.
type Resolver struct {
	fetcher  Fetcher
	verifier Verifier
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// Option configures a Resolver
type Option func(*Resolver)

func WithFetcher(f Fetcher) Option { return func(r *Resolver) { r.fetcher = f } }

// WithVerifier enables verification of each rewritten URL before it is returned
func WithVerifier(v Verifier) Option { return func(r *Resolver) { r.verifier = v } }

// WithTimeout bounds a single attempt
func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(r *Resolver) { r.logger = l } }

func WithMetrics(m *monitoring.Metrics) Option { return func(r *Resolver) { r.metrics = m } }

// New creates a resolver. Without options it fetches over HTTP with a 10s
// attempt timeout and does not verify.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		timeout: 10 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetcher == nil {
		r.fetcher = NewHTTPFetcher(r.timeout)
	}
	return r
}

// Resolve returns the first candidate that yields a usable debugger URL. When
// every candidate is exhausted, or ctx ends first, the error is an
// *ExhaustedError listing each candidate's attempts.
func (r *Resolver) Resolve(ctx context.Context, candidates []Candidate) (*Resolution, error) {
	if err := ValidateCandidates(candidates); err != nil {
		return nil, err
	}

	resID := id.NewResolutionID()
	log := r.logger.With(zap.String("resolution_id", resID.String()))
	timer := monitoring.NewTimer(r.metrics)

	var failures []CandidateFailure
	for i, c := range candidates {
		log.Info("Trying candidate",
			zap.String("candidate", c.Name),
			zap.String("base_url", c.BaseURL),
			zap.Int("position", i+1),
			zap.Int("retries", c.Retries))

		res, failure := r.tryCandidate(ctx, log, c)
		if res != nil {
			res.ID = resID
			res.Failures = failures
			elapsed := timer.Stop(resultOK)
			log.Info("Resolved debugger url",
				zap.String("candidate", c.Name),
				zap.String("url", res.WebSocketURL),
				zap.Int("attempts", res.Attempts),
				zap.Duration("elapsed", elapsed))
			return res, nil
		}
		failures = append(failures, failure)

		if err := ctx.Err(); err != nil {
			timer.Stop(resultCanceled)
			log.Warn("Resolution canceled", zap.Error(err))
			return nil, &ExhaustedError{Failures: failures, Cause: err}
		}

		if i < len(candidates)-1 {
			log.Warn("Candidate exhausted, failing over",
				zap.String("candidate", c.Name),
				zap.Int("attempts", failure.Attempts),
				zap.Error(failure.LastError()))
		}
	}

	timer.Stop(resultExhausted)
	err := &ExhaustedError{Failures: failures}
	log.Error("All candidates exhausted", zap.Error(err))
	return nil, err
}

func (r *Resolver) tryCandidate(ctx context.Context, log *zap.Logger, c Candidate) (*Resolution, CandidateFailure) {
	failure := CandidateFailure{Candidate: c}
	var res *Resolution

	operation := func() error {
		failure.Attempts++
		attempt := failure.Attempts

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		url, info, err := r.attempt(attemptCtx, c)
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %v", ctx.Err(), err)
				failure.Errors = append(failure.Errors, err)
				r.recordAttempt(c, resultCanceled)
				return backoff.Permanent(err)
			}
			failure.Errors = append(failure.Errors, err)
			r.logAttemptFailure(log, c, attempt, err)
			if attempt >= c.Retries {
				return backoff.Permanent(err)
			}
			return err
		}

		r.recordAttempt(c, resultOK)
		res = &Resolution{
			Candidate:    c,
			WebSocketURL: url,
			Version:      info,
			Attempts:     attempt,
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Debug("Retrying candidate",
			zap.String("candidate", c.Name),
			zap.Int("next_attempt", failure.Attempts+1),
			zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(c.backOff(), ctx), notify); err != nil {
		return nil, failure
	}
	return res, failure
}

func (r *Resolver) attempt(ctx context.Context, c Candidate) (string, *devtools.VersionInfo, error) {
	info, err := r.fetcher.FetchVersion(ctx, c.BaseURL)
	if err != nil {
		return "", nil, err
	}

	url := devtools.RewriteWebSocketURL(info.WebSocketDebuggerURL, c.BaseURL)
	if r.verifier != nil {
		if err := r.verifier.Verify(ctx, url); err != nil {
			if !errors.Is(err, ErrVerificationFailed) {
				err = fmt.Errorf("%w: %v", ErrVerificationFailed, err)
			}
			return "", nil, err
		}
	}
	return url, info, nil
}

func (r *Resolver) logAttemptFailure(log *zap.Logger, c Candidate, attempt int, err error) {
	fields := []zap.Field{
		zap.String("candidate", c.Name),
		zap.Int("attempt", attempt),
		zap.Int("retries", c.Retries),
		zap.Error(err),
	}

	switch {
	case errors.Is(err, devtools.ErrMalformedMetadata):
		r.recordAttempt(c, resultMalformed)
		log.Warn("Candidate returned malformed metadata", fields...)
	case errors.Is(err, ErrVerificationFailed):
		r.recordAttempt(c, resultVerificationFailed)
		log.Warn("Debugger url failed verification", fields...)
	default:
		r.recordAttempt(c, resultUnreachable)
		log.Warn("Candidate unreachable", fields...)
	}
}

func (r *Resolver) recordAttempt(c Candidate, result string) {
	if r.metrics != nil {
		r.metrics.RecordResolverAttempt(c.Name, result)
	}
}
