package resolver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidate(t *testing.T) {
	budget := DefaultBudget()

	tests := []struct {
		name     string
		raw     string
		index    int
		wantName string
		wantURL  string
		wantErr  bool
	}{
		{"named", "proxied=https://sandbox.example.com", 0, "proxied", "https://sandbox.example.com", false},
		{"bare url", "http://10.0.0.7:9222", 1, "candidate-2", "http://10.0.0.7:9222", false},
		{"trailing slash", "direct=http://10.0.0.7:9222/", 0, "direct", "http://10.0.0.7:9222", false},
		{"equals in query", "http://h:9222/?a=b", 0, "candidate-1", "http://h:9222/?a=b", false},
		{"websocket scheme", "ws://h:9222", 0, "", "", true},
		{"no host", "x=http://", 0, "", "", true},
		{"garbage", "not a url", 0, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCandidate(tt.raw, tt.index, budget)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCandidate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name)
			assert.Equal(t, tt.wantURL, c.BaseURL)
			assert.Equal(t, budget.Retries, c.Retries)
			assert.Equal(t, budget.Delay, c.Delay)
			assert.Equal(t, PolicyFixed, c.Policy)
		})
	}
}

func TestParseCandidatesKeepsOrder(t *testing.T) {
	candidates, err := ParseCandidates([]string{
		"proxied=https://sandbox.example.com",
		"",
		"direct=http://10.0.0.7:9222",
	}, DefaultBudget())

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "proxied", candidates[0].Name)
	assert.Equal(t, "direct", candidates[1].Name)

	_, err = ParseCandidates([]string{" "}, DefaultBudget())
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestLoadCandidatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
candidates:
  - name: proxied
    base_url: https://sandbox.example.com/
    retries: 5
    delay: 500ms
  - base_url: http://10.0.0.7:9222
    policy: linear
`), 0o600))

	candidates, err := LoadCandidatesFile(path, Budget{Retries: 2, Delay: time.Second, Policy: PolicyFixed})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, Candidate{
		Name:    "proxied",
		BaseURL: "https://sandbox.example.com",
		Retries: 5,
		Delay:   500 * time.Millisecond,
		Policy:  PolicyFixed,
	}, candidates[0])

	assert.Equal(t, Candidate{
		Name:    "candidate-2",
		BaseURL: "http://10.0.0.7:9222",
		Retries: 2,
		Delay:   time.Second,
		Policy:  PolicyLinear,
	}, candidates[1])
}

func TestParseCandidatesYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "candidates: []", ErrNoCandidates},
		{"bad delay", "candidates:\n  - base_url: http://h:9222\n    delay: soon", ErrInvalidCandidate},
		{"bad policy", "candidates:\n  - base_url: http://h:9222\n    policy: exponential", ErrInvalidCandidate},
		{"negative retries", "candidates:\n  - base_url: http://h:9222\n    retries: -1", ErrInvalidCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCandidatesYAML([]byte(tt.data), DefaultBudget())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := LoadCandidatesFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultBudget())
	assert.Error(t, err)
}
