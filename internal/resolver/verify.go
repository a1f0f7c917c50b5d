package resolver

import (
	"context"
	"fmt"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/rpcc"
)

// Verifier confirms a rewritten debugger URL accepts a CDP session
type Verifier interface {
	Verify(ctx context.Context, webSocketURL string) error
}

// CDPVerifier opens a session and asks the browser for its version
type CDPVerifier struct{}

func (CDPVerifier) Verify(ctx context.Context, webSocketURL string) error {
	conn, err := rpcc.DialContext(ctx, webSocketURL)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrVerificationFailed, webSocketURL, err)
	}
	defer conn.Close()

	if _, err := cdp.NewClient(conn).Browser.GetVersion(ctx); err != nil {
		return fmt.Errorf("%w: Browser.getVersion: %v", ErrVerificationFailed, err)
	}
	return nil
}
