package middleware

import (
	"context"
	"net/http"

	"github.com/upb/people-service/cognito"
	"github.com/upb/people-service/models"
	"github.com/upb/people-service/utils"
	"go.uber.org/zap"
)

// Reason codes recorded for group-gate decisions
const (
	ReasonSubjectUnresolvable = "subject_unresolvable"
	ReasonMissingGroup        = "missing_group"
)

// TokenValidator verifies the raw Authorization header value
type TokenValidator interface {
	Verify(ctx context.Context, authorization string) (*Claims, error)
}

// GroupResolver looks up the caller's groups and checks membership
type GroupResolver interface {
	ResolveGroups(ctx context.Context, subject string) ([]string, error)
	RequireGroup(groups []string, required string) error
}

// AccessRecorder receives every decision made on a protected route
type AccessRecorder interface {
	Record(entry *models.AccessLog)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	resolver  GroupResolver
	recorder  AccessRecorder
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. recorder may be nil.
func NewAuthMiddleware(validator TokenValidator, resolver GroupResolver, recorder AccessRecorder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		resolver:  resolver,
		recorder:  recorder,
		logger:    logger,
	}
}

// RequireAuth is a middleware that requires a valid bearer token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		claims, err := m.validator.Verify(ctx, r.Header.Get("Authorization"))
		if err != nil {
			reason := cognito.Reason(err)
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.String("reason", reason),
				zap.Error(err))
			m.record(r, "", "", func(e *models.AccessLog) { e.Deny(http.StatusUnauthorized, reason) })
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Sub.String()),
			zap.String("username", claims.Username))

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// RequireGroup is a middleware that requires directory membership in group.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireGroup(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			claims := GetClaimsFromContext(ctx)
			if claims == nil {
				m.logger.Error("claims not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			groups, err := m.resolver.ResolveGroups(ctx, claims.Username)
			if err != nil {
				m.logger.Warn("caller groups unresolvable",
					zap.String("request_id", requestID),
					zap.String("username", claims.Username))
				m.record(r, claims.Username, group, func(e *models.AccessLog) {
					e.Deny(http.StatusUnauthorized, ReasonSubjectUnresolvable)
				})
				_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
				return
			}

			if err := m.resolver.RequireGroup(groups, group); err != nil {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("username", claims.Username),
					zap.String("required_group", group),
					zap.Strings("user_groups", groups))
				m.record(r, claims.Username, group, func(e *models.AccessLog) {
					e.Deny(http.StatusForbidden, ReasonMissingGroup)
				})
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			m.logger.Debug("group check passed",
				zap.String("request_id", requestID),
				zap.String("required_group", group))
			m.record(r, claims.Username, group, func(e *models.AccessLog) { e.Allow() })

			next.ServeHTTP(w, r.WithContext(WithGroups(ctx, groups)))
		})
	}
}

func (m *AuthMiddleware) record(r *http.Request, subject, group string, decide func(*models.AccessLog)) {
	if m.recorder == nil {
		return
	}
	entry := models.NewAccessLog(r.Method, r.URL.Path).
		WithRequest(GetRequestIDFromContext(r.Context()), r.RemoteAddr, r.UserAgent()).
		WithSubject(subject, group)
	decide(entry)
	m.recorder.Record(entry)
}
