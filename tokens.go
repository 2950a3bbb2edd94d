package authgate

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCookieName is the cookie carrying the signed bearer token
const TokenCookieName = "token"

// DefaultTokenTTL is used when a TokenIssuer is configured without one
const DefaultTokenTTL = 24 * time.Hour

// TokenIssuer mints and validates signed, time-scoped bearer tokens carrying
// an account id. Verification is stateless: validity is entirely determined
// by signature and expiry, independent of any session. The secret is
// process-wide configuration, loaded once at startup; rotation is out of
// scope for this design.
type TokenIssuer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func (t *TokenIssuer) ttl() time.Duration {
	if t.TTL > 0 {
		return t.TTL
	}
	return DefaultTokenTTL
}

// Issue signs a token whose subject is the account id
func (t *TokenIssuer) Issue(accountID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    t.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl())),
	})
	return token.SignedString(t.Secret)
}

// Verify parses and checks a signed token, returning the embedded account id.
// Elapsed expiry yields ErrTokenExpired; any signature or claims problem
// yields ErrTokenInvalid. Callers treat both as "not authenticated via token".
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tk *jwt.Token) (any, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return t.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
