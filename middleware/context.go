package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"

	// GroupsKey is the context key for the caller's resolved directory groups
	GroupsKey contextKey = "groups"
)

// Claims represents the verified token claims handlers may rely on
type Claims struct {
	Sub       uuid.UUID
	Username  string // directory username, used for group lookups
	Email     string
	TokenUse  string
	Iss       string
	ExpiresAt int64
}

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetClaimsFromContext retrieves claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetGroupsFromContext retrieves the groups resolved by RequireGroup
func GetGroupsFromContext(ctx context.Context) []string {
	if val := ctx.Value(GroupsKey); val != nil {
		if groups, ok := val.([]string); ok {
			return groups
		}
	}
	return nil
}

// WithGroups adds resolved groups to the context
func WithGroups(ctx context.Context, groups []string) context.Context {
	return context.WithValue(ctx, GroupsKey, groups)
}
