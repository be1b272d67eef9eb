// Package credential wraps the system keyring and exposes the token
// provider boundary. The core never inspects token internals; refresh
// and storage concerns stay behind TokenProvider.
package credential

import "context"

// TokenProvider yields a currently valid bearer token for an external
// API. Implementations handle refresh-on-expiry internally.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// KeyringTokenProvider reads a long-lived token from the system
// keyring on every call, so out-of-band rotation is picked up without
// a restart.
type KeyringTokenProvider struct {
	Key string
}

// Token returns the stored token for the provider's key.
func (p *KeyringTokenProvider) Token(_ context.Context) (string, error) {
	return Get(p.Key)
}

// StaticTokenProvider returns a fixed token. Used in tests.
type StaticTokenProvider string

// Token returns the fixed token.
func (p StaticTokenProvider) Token(_ context.Context) (string, error) {
	return string(p), nil
}
