package devtools

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMetadata covers any metadata document that cannot be used:
	// invalid JSON, wrong top-level type, or a debugger URL that is not a string.
	ErrMalformedMetadata = errors.New("malformed devtools metadata")

	// ErrMissingDebuggerURL is a malformed document without a usable
	// webSocketDebuggerUrl. errors.Is(err, ErrMalformedMetadata) holds.
	ErrMissingDebuggerURL = fmt.Errorf("%w: missing %s", ErrMalformedMetadata, DebuggerURLField)
)
