package shared

import "context"

type loginContextKey struct{}

// ContextWithLoginID stores the stable login identifier of the current session.
func ContextWithLoginID(ctx context.Context, loginID string) context.Context {
	return context.WithValue(ctx, loginContextKey{}, loginID)
}

// LoginIDFromContext extracts the login identifier, empty for anonymous requests.
func LoginIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(loginContextKey{}).(string)
	return id
}
