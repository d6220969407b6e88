package handlers

import "context"

// contextKey is the type for request context keys.
type contextKey string

const (
	// TenantIDKey holds the authenticated tenant id.
	TenantIDKey contextKey = "tenant_id"
	// UserIDKey holds the authenticated user id.
	UserIDKey contextKey = "user_id"
)

// GetTenantID extracts the authenticated tenant id from the request context.
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok
}

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
