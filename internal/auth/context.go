package auth

import "context"

type contextKey string

const (
	sessionIdentityKey contextKey = "auth.session"
	apiIdentityKey     contextKey = "auth.api"
)

// Identity is a dashboard session identity established from a bearer token.
type Identity struct {
	UserID string
	Email  string
}

// APIIdentity is a programmatic merchant identity established from an API
// key and request signature.
type APIIdentity struct {
	MerchantID  string
	Email       string
	APIKey      string
	Environment Environment
}

// WithIdentity attaches a session identity to the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, sessionIdentityKey, identity)
}

// IdentityFrom extracts the session identity, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(sessionIdentityKey).(*Identity)
	return identity, ok
}

// WithAPIIdentity attaches a merchant identity to the context.
func WithAPIIdentity(ctx context.Context, identity *APIIdentity) context.Context {
	return context.WithValue(ctx, apiIdentityKey, identity)
}

// APIIdentityFrom extracts the merchant identity, if any.
func APIIdentityFrom(ctx context.Context) (*APIIdentity, bool) {
	identity, ok := ctx.Value(apiIdentityKey).(*APIIdentity)
	return identity, ok
}
