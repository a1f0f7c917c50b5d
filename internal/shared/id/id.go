// Package id provides centralized ID generation for cdpgate.
//
// IDs are prefixed ULIDs:
//   - Lexicographic sortability: log lines for one relay session sort by start time
//   - Prefixed types: rly_*, req_*, span_*, res_* make logs readable
//   - Type safety: separate string types prevent mixing a relay ID with a trace ID
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies one inbound HTTP request (also used as trace ID)
type RequestID string

// RelayID identifies one proxied WebSocket relay session
type RelayID string

// SpanID identifies one span inside a trace
type SpanID string

// ResolutionID identifies one endpoint resolution call
type ResolutionID string

const (
	RequestPrefix    = "req"
	RelayPrefix      = "rly"
	SpanPrefix       = "span"
	ResolutionPrefix = "res"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewRelayID generates a new relay session ID
func NewRelayID() RelayID {
	return RelayID(Default().GenerateWithPrefix(RelayPrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewResolutionID generates a new resolution ID
func NewResolutionID() ResolutionID {
	return ResolutionID(Default().GenerateWithPrefix(ResolutionPrefix))
}

func (id RequestID) String() string    { return string(id) }
func (id RelayID) String() string      { return string(id) }
func (id SpanID) String() string       { return string(id) }
func (id ResolutionID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string, with or without a type prefix
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}

// Timestamp extracts the creation time from an ID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
