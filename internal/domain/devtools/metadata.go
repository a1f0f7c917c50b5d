package devtools

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

// Well-known DevTools HTTP endpoints
const (
	VersionPath   = "/json/version"
	ListPath      = "/json/list"
	ListAliasPath = "/json"

	DebuggerURLField = "webSocketDebuggerUrl"
)

// VersionInfo is the document served at /json/version.
// Only WebSocketDebuggerURL is interpreted; the rest is descriptive.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	V8Version            string `json:"V8-Version,omitempty"`
	WebKitVersion        string `json:"WebKit-Version,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// TargetInfo is one entry of /json/list
type TargetInfo struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty"`
}

// ParseVersion decodes a /json/version document and requires a debugger URL
func ParseVersion(body []byte) (*VersionInfo, error) {
	var info VersionInfo
	if err := sonic.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if strings.TrimSpace(info.WebSocketDebuggerURL) == "" {
		return nil, ErrMissingDebuggerURL
	}
	return &info, nil
}

// RewriteVersion rewrites the debugger URL of a raw /json/version document
// against externalBase. The document is edited in place, so every other
// field keeps its original JSON value and key order. It returns the new
// document and the rewritten URL.
func RewriteVersion(body []byte, externalBase string) ([]byte, string, error) {
	root, err := parseRoot(body, ast.V_OBJECT)
	if err != nil {
		return nil, "", err
	}

	fixed, err := rewriteField(&root, externalBase)
	if err != nil {
		return nil, "", err
	}

	out, err := root.MarshalJSON()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return out, fixed, nil
}

// RewriteTargets rewrites the debugger URL of every entry of a raw
// /json/list document. Entries without a debugger URL (targets already
// attached to another client) are left alone. It returns the new document and
// the number of rewritten entries.
func RewriteTargets(body []byte, externalBase string) ([]byte, int, error) {
	root, err := parseRoot(body, ast.V_ARRAY)
	if err != nil {
		return nil, 0, err
	}
	if err := root.Load(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	n, err := root.Len()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	rewritten := 0
	for i := 0; i < n; i++ {
		entry := root.Index(i)
		if entry == nil || entry.Type() != ast.V_OBJECT {
			return nil, 0, fmt.Errorf("%w: target %d is not an object", ErrMalformedMetadata, i)
		}
		if _, err := rewriteField(entry, externalBase); err != nil {
			if err == ErrMissingDebuggerURL {
				continue
			}
			return nil, 0, err
		}
		rewritten++
	}

	out, err := root.MarshalJSON()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return out, rewritten, nil
}

func parseRoot(body []byte, want int) (ast.Node, error) {
	if !sonic.Valid(body) {
		return ast.Node{}, fmt.Errorf("%w: invalid json", ErrMalformedMetadata)
	}
	root, err := sonic.Get(body)
	if err != nil {
		return ast.Node{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if root.Type() != want {
		return ast.Node{}, fmt.Errorf("%w: unexpected document type %d", ErrMalformedMetadata, root.Type())
	}
	return root, nil
}

func rewriteField(obj *ast.Node, externalBase string) (string, error) {
	field := obj.Get(DebuggerURLField)
	if !field.Exists() {
		return "", ErrMissingDebuggerURL
	}

	original, err := field.StrictString()
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedMetadata, DebuggerURLField)
	}
	if strings.TrimSpace(original) == "" {
		return "", ErrMissingDebuggerURL
	}

	fixed := RewriteWebSocketURL(original, externalBase)
	if _, err := obj.Set(DebuggerURLField, ast.NewString(fixed)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return fixed, nil
}
