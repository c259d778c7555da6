package oauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints the bearer tokens handed out by the token endpoint. A
// token is a compact HS256 JWT whose "key" claim carries the underlying API
// key; the auth gate verifies with the same secret and unwraps it, so token
// holders pass through the identical resolution path as direct key holders.
type TokenIssuer struct {
	issuer string
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(issuer string, secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenIssuer{issuer: issuer, secret: secret, ttl: ttl}
}

// Issue returns a signed bearer token for the API key plus its lifetime in
// seconds.
func (i *TokenIssuer) Issue(apiKey, email string) (string, int64, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": i.issuer,
		"sub": email,
		"key": apiKey,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return token, int64(i.ttl / time.Second), nil
}
