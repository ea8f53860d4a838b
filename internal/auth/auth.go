// Package auth verifies bearer JWTs and resolves them to a principal.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// DefaultKeyCacheTTL is how long a resolved signing key is reused per kid.
const DefaultKeyCacheTTL = 15 * time.Minute

var (
	ErrMissingAuthorization = errors.New("missing authorization header")
	ErrBadAuthorization     = errors.New("bad auth header")
	ErrInvalidToken         = errors.New("invalid token")
)

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Email string
	Name  string
}

// Auth validates incoming JWT tokens, either against a JWKS (RS256) or a
// shared secret (HS256) for local development.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string

	secret      []byte
	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// New creates an Auth that verifies RS256 tokens with keys from jwks.
func New(jwks *keyfunc.JWKS, audience, issuer string, keyCacheTTL time.Duration) *Auth {
	return &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: keyCacheTTL,
	}
}

// NewShared creates an Auth that verifies HS256 tokens signed with secret.
func NewShared(secret []byte, audience, issuer string) *Auth {
	return &Auth{
		Audience: audience,
		Issuer:   issuer,
		secret:   secret,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// PrincipalFromHeader resolves the Authorization header value to a principal.
func (a *Auth) PrincipalFromHeader(h string) (*Principal, error) {
	token, err := bearerToken(h)
	if err != nil {
		return nil, err
	}
	return a.PrincipalFromBearer(token)
}

// PrincipalFromBearer verifies a raw token and returns its principal.
func (a *Auth) PrincipalFromBearer(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrBadAuthorization
	}

	parsed, err := a.parser.Parse(token, a.keyFor)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	// Checked a minute ahead: nbf gets skew leeway, exp must have a minute left.
	now := time.Now().Add(time.Minute).Unix()
	switch {
	case !claims.VerifyExpiresAt(now, true):
		return nil, errors.Join(ErrInvalidToken, errors.New("token expired"))
	case !claims.VerifyNotBefore(now, false):
		return nil, errors.Join(ErrInvalidToken, errors.New("token not valid yet"))
	case a.Audience != "" && !claims.VerifyAudience(a.Audience, true):
		return nil, errors.Join(ErrInvalidToken, errors.New("invalid audience"))
	case a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, true):
		return nil, errors.Join(ErrInvalidToken, errors.New("invalid issuer"))
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.Join(ErrInvalidToken, errors.New("missing sub"))
	}

	p := &Principal{ID: sub}
	p.Email, _ = claims["email"].(string)
	p.Name, _ = claims["name"].(string)
	return p, nil
}

func (a *Auth) keyFor(token *jwt.Token) (any, error) {
	if a.secret != nil {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
