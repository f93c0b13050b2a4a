package common

import "context"

type ctxKey string

const adminKey ctxKey = "auth/admin"

// WithAdmin stores the authenticated admin username on the context.
func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminKey, username)
}

// Admin extracts the authenticated admin username from the context if present.
func Admin(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(adminKey).(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}
