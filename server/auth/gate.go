package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ezbizservices/seo-mcp/keystore"
)

// Gate resolves inbound credentials to an identity and tier and records
// billable usage against the keystore.
type Gate struct {
	store       keystore.Store
	tokenSecret []byte
	logger      *slog.Logger
}

// Resolution is the successful outcome of resolving a credential.
type Resolution struct {
	// Key is the underlying API key, after unwrapping an OAuth-issued token.
	Key   string
	Name  string
	Email string
	Tier  Tier
}

// Option configures a Gate.
type Option func(*Gate)

// WithTokenSecret enables resolution of OAuth-issued bearer tokens signed
// with the given secret.
func WithTokenSecret(secret []byte) Option {
	return func(g *Gate) {
		g.tokenSecret = secret
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate backed by the given keystore.
func NewGate(store keystore.Store, options ...Option) *Gate {
	gate := &Gate{store: store, logger: slog.Default()}
	for _, option := range options {
		option(gate)
	}
	return gate
}

// Resolve normalizes and validates a credential. It fails with
// ErrCredentialMissing or ErrCredentialInvalid; resolution of a valid key is
// deterministic and idempotent within a usage period.
func (g *Gate) Resolve(ctx context.Context, credential string) (*Resolution, error) {
	key, err := g.normalize(credential)
	if err != nil {
		return nil, err
	}
	record, err := g.store.Validate(ctx, key)
	if err != nil {
		if err == keystore.ErrKeyNotFound {
			return nil, ErrCredentialInvalid
		}
		return nil, fmt.Errorf("auth: keystore validate: %w", err)
	}
	return &Resolution{
		Key:   record.Key,
		Name:  record.Name,
		Email: record.Email,
		Tier:  ParseTier(record.Tier),
	}, nil
}

// RecordUsage increments the current-month counter for the credential's
// identity. Callers invoke it only for billable tool-call messages; failures
// are reported back so they can be logged and swallowed, never propagated to
// the request outcome.
func (g *Gate) RecordUsage(ctx context.Context, credential string) error {
	key, err := g.normalize(credential)
	if err != nil {
		return err
	}
	return g.store.RecordUsage(ctx, key)
}

// normalize maps any accepted credential shape to the underlying API key.
// OAuth-issued bearer tokens are compact JWTs wrapping the key; everything
// else is taken to be the key itself.
func (g *Gate) normalize(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrCredentialMissing
	}
	if strings.Count(credential, ".") == 2 && len(g.tokenSecret) > 0 {
		key, err := g.keyFromToken(credential)
		if err != nil {
			g.logger.Debug("bearer token rejected", "error", err)
			return "", ErrCredentialInvalid
		}
		return key, nil
	}
	return credential, nil
}

func (g *Gate) keyFromToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return g.tokenSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	key, _ := claims["key"].(string)
	if key == "" {
		return "", fmt.Errorf("token carries no key claim")
	}
	return key, nil
}
