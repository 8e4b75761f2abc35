package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingToken  = errors.New("missing token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("token verification is not configured")
)

// Identity is the authenticated context of one connection. It is created once at
// handshake time and passed by value into every lobby call; nothing mutates it.
type Identity struct {
	ConnID string `json:"connId"`
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// Claims are the token claims issued by the sign-in service.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens, either with a shared HS256 secret or against a JWKS endpoint.
type Verifier struct {
	secret []byte
	jwks   keyfunc.Keyfunc
}

// NewVerifier builds a Verifier. When jwksURL is set it takes precedence over secret.
// With neither set every token is rejected with ErrNotConfigured.
func NewVerifier(secret, jwksURL string) (*Verifier, error) {
	v := &Verifier{}
	if jwksURL != "" {
		k, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("load jwks %s: %w", jwksURL, err)
		}
		v.jwks = k
		return v, nil
	}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v, nil
}

// Configured reports whether the verifier can accept any token.
func (v *Verifier) Configured() bool {
	return v != nil && (v.jwks != nil || len(v.secret) > 0)
}

// Verify parses and validates tokenString and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if !v.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	var (
		keyFn   jwt.Keyfunc
		methods []string
	)
	if v.jwks != nil {
		keyFn = v.jwks.Keyfunc
		methods = []string{"EdDSA", "RS256", "ES256"}
	} else {
		keyFn = func(*jwt.Token) (any, error) { return v.secret, nil }
		methods = []string{"HS256"}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFn, jwt.WithValidMethods(methods))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewIdentity mints a connection identity for verified claims.
func NewIdentity(claims *Claims) Identity {
	return Identity{
		ConnID: uuid.NewString(),
		UserID: claims.UserID,
		Email:  claims.Email,
	}
}

// TokenFromRequest returns the token from the "token" query parameter or the
// Authorization bearer header, in that order.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}

// IssueToken signs an HS256 token with the same claims the sign-in service issues.
// Used by tooling and tests.
func IssueToken(secret string, userID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
