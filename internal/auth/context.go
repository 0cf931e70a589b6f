package auth

import "context"

// contextKey is unexported so no other package can read or shadow the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the request's identity, or Anonymous.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// UserIDFromContext returns (id, true) for an authenticated request.
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // anonymous
//	}
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id := IdentityFromContext(ctx)
	return id.UserID, id.Authenticated()
}
