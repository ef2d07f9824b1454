package cognito

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// bearerPrefix is matched case-sensitively, including the single space
const bearerPrefix = "Bearer "

// Claims represents the claims Cognito puts in ID and access tokens
type Claims struct {
	jwt.RegisteredClaims
	TokenUse        string   `json:"token_use"`
	Username        string   `json:"username"`         // access tokens
	CognitoUsername string   `json:"cognito:username"` // ID tokens
	ClientID        string   `json:"client_id"`        // access tokens carry the app client here instead of aud
	Email           string   `json:"email"`
	EmailVerified   bool     `json:"email_verified"`
	Groups          []string `json:"cognito:groups"`
	AuthTime        int64    `json:"auth_time"`
}

// ParsedClaims represents parsed and validated claims
type ParsedClaims struct {
	Sub           uuid.UUID
	Username      string
	Email         string
	EmailVerified bool
	Groups        []string // as asserted by the token; authorization uses the directory instead
	TokenUse      string
	ClientID      string
	Issuer        string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Subject returns the directory username the token was issued to
func (p *ParsedClaims) Subject() string {
	return p.Username
}

// ExtractBearerToken returns the raw JWT from an Authorization header value.
// Anything other than "Bearer <token>" is rejected with ErrMalformedHeader.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: header missing", ErrMalformedHeader)
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrMalformedHeader)
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", fmt.Errorf("%w: empty or split token", ErrMalformedHeader)
	}
	return token, nil
}

// parseClaims converts Claims to ParsedClaims with proper type conversions
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub claim missing", ErrMalformedToken)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sub UUID: %v", ErrMalformedToken, err)
	}

	username := claims.Username
	if username == "" {
		username = claims.CognitoUsername
	}
	if username == "" {
		username = claims.Subject
	}

	parsed := &ParsedClaims{
		Sub:           sub,
		Username:      username,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Groups:        claims.Groups,
		TokenUse:      claims.TokenUse,
		ClientID:      claims.ClientID,
		Issuer:        claims.Issuer,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}

// Reason returns the rejection reason code for a verification error.
// Errors that did not come from the validator map to "malformed".
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, ErrKeySetUnavailable):
		return "key_set_unavailable"
	case errors.Is(err, ErrUnknownKey):
		return "unknown_key"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrInvalidIssuer):
		return "invalid_issuer"
	case errors.Is(err, ErrInvalidAudience):
		return "invalid_audience"
	default:
		return "malformed"
	}
}
