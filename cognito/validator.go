package cognito

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMalformedHeader is returned when the Authorization header is absent or not "Bearer <token>"
	ErrMalformedHeader = errors.New("malformed authorization header")

	// ErrMalformedToken is returned when the token cannot be decoded or lacks required structure
	ErrMalformedToken = errors.New("malformed token")

	// ErrUnknownKey is returned when no key in the JWKS matches the token's kid
	ErrUnknownKey = errors.New("unknown signing key")

	// ErrInvalidSignature is returned when the signature does not verify with RS256
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is not the configured user pool
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token was issued to another app client
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrKeySetUnavailable is returned when the JWKS could not be fetched
	ErrKeySetUnavailable = errors.New("signing key set unavailable")
)

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// IssuerURL returns the token issuer of a user pool
func IssuerURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// KeySetURL returns the well-known JWKS URL of an issuer
func KeySetURL(issuer string) string {
	return issuer + "/.well-known/jwks.json"
}

// Validator validates Cognito-issued JWTs against the user pool's JWKS.
//
// Signing keys are cached by kid and fetched lazily: a kid that is not cached,
// or a cache older than keyCacheTTL, triggers one refresh of the whole key set.
// Concurrent misses for the same kid share a single fetch. Within
// minRefreshInterval of a successful refresh an unknown kid is rejected without
// refetching, so a newly published key is trusted at most minRefreshInterval
// after Cognito starts using it. A key Cognito withdraws stays trusted for at
// most keyCacheTTL after the last refresh. Fetch failures are never cached.
type Validator struct {
	issuer             string
	clientID           string
	jwksURL            string
	httpClient         *http.Client
	keyCacheTTL        time.Duration
	minRefreshInterval time.Duration

	keys        map[string]*rsa.PublicKey
	refreshedAt time.Time
	keysMu      sync.RWMutex

	refresh singleflight.Group
	fetches atomic.Int64
}

// Config holds configuration for Validator
type Config struct {
	Region      string
	UserPoolID  string
	Issuer      string // optional; defaults to IssuerURL(Region, UserPoolID)
	ClientID    string // optional
	JWKSURL     string // optional; defaults to the issuer's well-known URL
	CacheTTL    time.Duration
	HTTPTimeout time.Duration

	// MinRefreshInterval bounds how often an unknown kid may trigger a JWKS
	// fetch. Zero refetches on every miss.
	MinRefreshInterval time.Duration
}

// NewValidator creates a new Cognito JWT validator
func NewValidator(config Config) *Validator {
	if config.CacheTTL == 0 {
		config.CacheTTL = 1 * time.Hour
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}

	issuer := config.Issuer
	if issuer == "" {
		issuer = IssuerURL(config.Region, config.UserPoolID)
	}
	jwksURL := config.JWKSURL
	if jwksURL == "" {
		jwksURL = KeySetURL(issuer)
	}

	return &Validator{
		issuer:             issuer,
		clientID:           config.ClientID,
		jwksURL:            jwksURL,
		keyCacheTTL:        config.CacheTTL,
		minRefreshInterval: config.MinRefreshInterval,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		keys: make(map[string]*rsa.PublicKey),
	}
}

// Verify validates the token carried by an Authorization header value.
// Header problems are reported before any network call is made.
func (v *Validator) Verify(ctx context.Context, authorization string) (*ParsedClaims, error) {
	token, err := ExtractBearerToken(authorization)
	if err != nil {
		return nil, err
	}
	return v.ValidateToken(ctx, token)
}

// ValidateToken validates a raw JWT and returns parsed claims
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*ParsedClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidSignature, token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: kid header not found", ErrMalformedToken)
		}

		return v.getPublicKey(ctx, kid)
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}

	if claims.TokenUse != "id" && claims.TokenUse != "access" {
		return nil, fmt.Errorf("%w: invalid token_use %q", ErrMalformedToken, claims.TokenUse)
	}

	if v.clientID != "" && !v.issuedToClient(claims) {
		return nil, ErrInvalidAudience
	}

	return parseClaims(claims)
}

// classifyParseError maps golang-jwt failures onto the validator's sentinels.
// Errors raised by the key lookup already wrap a sentinel and pass through.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrKeySetUnavailable),
		errors.Is(err, ErrUnknownKey),
		errors.Is(err, ErrMalformedToken),
		errors.Is(err, ErrInvalidSignature):
		return err
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// issuedToClient checks aud for ID tokens and client_id for access tokens
func (v *Validator) issuedToClient(claims *Claims) bool {
	if claims.TokenUse == "access" {
		return claims.ClientID == v.clientID
	}
	for _, aud := range claims.Audience {
		if aud == v.clientID {
			return true
		}
	}
	return false
}

// getPublicKey retrieves the public key for a given kid, refreshing the key set on a miss
func (v *Validator) getPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := v.cachedKey(kid); ok {
		return key, nil
	}

	result, err, _ := v.refresh.Do(kid, func() (interface{}, error) {
		// a flight for this kid may have completed between the miss and Do
		if key, ok := v.cachedKey(kid); ok {
			return key, nil
		}
		if v.refreshedWithin(v.minRefreshInterval) {
			return nil, fmt.Errorf("%w: kid %s not found in JWKS", ErrUnknownKey, kid)
		}

		// the fetch is shared by every waiter, so it must not die with the first caller's request
		if err := v.refreshKeys(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}

		if key, ok := v.cachedKey(kid); ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: kid %s not found in JWKS", ErrUnknownKey, kid)
	})
	if err != nil {
		return nil, err
	}

	return result.(*rsa.PublicKey), nil
}

// cachedKey returns the key for kid while the cached key set is fresh
func (v *Validator) cachedKey(kid string) (*rsa.PublicKey, bool) {
	v.keysMu.RLock()
	defer v.keysMu.RUnlock()

	if v.refreshedAt.IsZero() || time.Since(v.refreshedAt) > v.keyCacheTTL {
		return nil, false
	}
	key, ok := v.keys[kid]
	return key, ok
}

// refreshedWithin reports whether the last successful refresh happened less than d ago
func (v *Validator) refreshedWithin(d time.Duration) bool {
	v.keysMu.RLock()
	defer v.keysMu.RUnlock()

	return !v.refreshedAt.IsZero() && time.Since(v.refreshedAt) < d
}

// refreshKeys replaces the cached key set with the current JWKS
func (v *Validator) refreshKeys(ctx context.Context) error {
	jwks, err := v.FetchJWKS(ctx)
	if err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for i := range jwks.Keys {
		jwk := &jwks.Keys[i]
		if jwk.Kid == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		publicKey, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			// one unusable entry must not take the other keys down with it
			continue
		}
		keys[jwk.Kid] = publicKey
	}

	v.keysMu.Lock()
	v.keys = keys
	v.refreshedAt = time.Now()
	v.keysMu.Unlock()

	return nil
}

// FetchJWKS fetches the JWKS from Cognito. No retries are attempted.
func (v *Validator) FetchJWKS(ctx context.Context) (*JWKS, error) {
	v.fetches.Add(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrKeySetUnavailable, err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrKeySetUnavailable, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWKS: %v", ErrKeySetUnavailable, err)
	}

	return &jwks, nil
}

// jwkToRSAPublicKey converts a JWK to an RSA public key
func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	if len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, errors.New("invalid exponent length")
	}

	var e int
	for _, b := range eBytes {
		e = e*256 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// InvalidateCache drops every cached key; the next verification refetches the JWKS
func (v *Validator) InvalidateCache() {
	v.keysMu.Lock()
	defer v.keysMu.Unlock()
	v.keys = make(map[string]*rsa.PublicKey)
	v.refreshedAt = time.Time{}
}

// CacheStats returns cache statistics
func (v *Validator) CacheStats() map[string]interface{} {
	v.keysMu.RLock()
	defer v.keysMu.RUnlock()

	return map[string]interface{}{
		"cached_keys_count": len(v.keys),
		"refreshed_at":      v.refreshedAt,
		"jwks_fetches":      v.fetches.Load(),
	}
}
