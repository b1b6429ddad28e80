package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller of an admin route.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	// TokenID is the jti of the bearer token, empty for the service-role key.
	TokenID string `json:"-"`
	Expires int64  `json:"-"`
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// UserID returns the caller's id, or "" outside an authenticated request.
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID
	}
	return ""
}

func Role(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.Role
	}
	return ""
}
