package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResolutionExhausted is matched by every *ExhaustedError
	ErrResolutionExhausted = errors.New("endpoint resolution exhausted")

	// ErrUpstreamUnreachable covers connect errors, timeouts and non-200
	// answers from a candidate's metadata endpoint
	ErrUpstreamUnreachable = errors.New("candidate unreachable")

	// ErrVerificationFailed means the rewritten URL did not accept a CDP session
	ErrVerificationFailed = errors.New("debugger url verification failed")

	ErrNoCandidates     = errors.New("no candidates")
	ErrInvalidCandidate = errors.New("invalid candidate")
)

// CandidateFailure records every failed attempt against one candidate
type CandidateFailure struct {
	Candidate Candidate
	Attempts  int
	Errors    []error
}

// LastError returns the error of the final attempt
func (f CandidateFailure) LastError() error {
	if len(f.Errors) == 0 {
		return nil
	}
	return f.Errors[len(f.Errors)-1]
}

// ExhaustedError is returned when no candidate produced a debugger URL. It
// lists the candidates in the order they were tried.
type ExhaustedError struct {
	Failures []CandidateFailure
	// Cause is set when resolution stopped early, e.g. context cancellation
	Cause error
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrResolutionExhausted.Error())
	if e.Cause != nil {
		fmt.Fprintf(&sb, " (%v)", e.Cause)
	}
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "; %s [%s] failed %d attempt(s), last error: %v",
			f.Candidate.Name, f.Candidate.BaseURL, f.Attempts, f.LastError())
	}
	return sb.String()
}

// Unwrap exposes both ErrResolutionExhausted and the early-stop cause
func (e *ExhaustedError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrResolutionExhausted, e.Cause}
	}
	return []error{ErrResolutionExhausted}
}
