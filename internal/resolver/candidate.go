package resolver

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Policy selects the wait between attempts against the same candidate
type Policy string

const (
	PolicyFixed  Policy = "fixed"
	PolicyLinear Policy = "linear"
)

// Candidate is one base address that may serve CDP metadata, with its own
// retry budget.
type Candidate struct {
	Name    string
	BaseURL string
	// Retries is the total number of attempts against this candidate
	Retries int
	Delay   time.Duration
	Policy  Policy
}

func (c Candidate) String() string {
	return c.Name + "=" + c.BaseURL
}

// Budget holds the defaults applied to candidates that leave fields unset
type Budget struct {
	Retries int
	Delay   time.Duration
	Policy  Policy
}

// DefaultBudget is three attempts two seconds apart
func DefaultBudget() Budget {
	return Budget{Retries: 3, Delay: 2 * time.Second, Policy: PolicyFixed}
}

func (c Candidate) withBudget(b Budget) Candidate {
	if c.Retries == 0 {
		c.Retries = b.Retries
	}
	if c.Delay == 0 {
		c.Delay = b.Delay
	}
	if c.Policy == "" {
		c.Policy = b.Policy
	}
	if c.Policy == "" {
		c.Policy = PolicyFixed
	}
	return c
}

// Validate checks a single candidate
func (c Candidate) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCandidate)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCandidate, c.Name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s: base url must be http or https, got %q", ErrInvalidCandidate, c.Name, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s: base url has no host", ErrInvalidCandidate, c.Name)
	}
	if c.Retries < 1 {
		return fmt.Errorf("%w: %s: retries must be at least 1", ErrInvalidCandidate, c.Name)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: %s: negative delay", ErrInvalidCandidate, c.Name)
	}
	switch c.Policy {
	case PolicyFixed, PolicyLinear:
	default:
		return fmt.Errorf("%w: %s: unknown policy %q", ErrInvalidCandidate, c.Name, c.Policy)
	}
	return nil
}

// ValidateCandidates checks an ordered candidate list
func ValidateCandidates(candidates []Candidate) error {
	if len(candidates) == 0 {
		return ErrNoCandidates
	}
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseCandidate parses "name=url" or a bare url. Bare urls are named
// candidate-<index+1>.
func ParseCandidate(raw string, index int, b Budget) (Candidate, error) {
	raw = strings.TrimSpace(raw)
	name := "candidate-" + strconv.Itoa(index+1)

	if i := strings.Index(raw, "="); i > 0 && !strings.Contains(raw[:i], "://") {
		name, raw = strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
	}

	c := Candidate{
		Name:    name,
		BaseURL: strings.TrimRight(raw, "/"),
	}.withBudget(b)

	if err := c.Validate(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// ParseCandidates parses a list of args, keeping their order
func ParseCandidates(args []string, b Budget) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(args))
	for i, raw := range args {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		c, err := ParseCandidate(raw, i, b)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

type candidatesFile struct {
	Candidates []fileCandidate `yaml:"candidates"`
}

type fileCandidate struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Retries int    `yaml:"retries"`
	Delay   string `yaml:"delay"`
	Policy  string `yaml:"policy"`
}

// LoadCandidatesFile reads candidates from YAML:
//
//	candidates:
//	  - name: proxied
//	    base_url: https://sandbox.example.com
//	    retries: 3
//	    delay: 2s
//	  - name: direct
//	    base_url: http://10.0.0.7:9222
//	    policy: linear
func LoadCandidatesFile(path string, b Budget) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates file: %w", err)
	}
	return ParseCandidatesYAML(data, b)
}

// ParseCandidatesYAML is LoadCandidatesFile without the file
func ParseCandidatesYAML(data []byte, b Budget) ([]Candidate, error) {
	var f candidatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse candidates: %w", err)
	}
	if len(f.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	candidates := make([]Candidate, 0, len(f.Candidates))
	for i, fc := range f.Candidates {
		c := Candidate{
			Name:    fc.Name,
			BaseURL: strings.TrimRight(strings.TrimSpace(fc.BaseURL), "/"),
			Retries: fc.Retries,
			Policy:  Policy(strings.ToLower(fc.Policy)),
		}
		if c.Name == "" {
			c.Name = "candidate-" + strconv.Itoa(i+1)
		}
		if fc.Delay != "" {
			d, err := time.ParseDuration(fc.Delay)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: delay: %v", ErrInvalidCandidate, c.Name, err)
			}
			c.Delay = d
		}

		c = c.withBudget(b)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
