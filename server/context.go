package server

import (
	"context"

	"github.com/ezbizservices/seo-mcp/server/auth"
)

type contextKey string

const callAuthKey contextKey = "callAuth"

// callAuth carries the billing identity for a tool call: the credential
// proven at session creation and the tier frozen at that moment. A carrying
// request must still present some credential, but it is not re-validated; a
// mid-session upgrade or revocation does not change an open session.
type callAuth struct {
	Credential string
	Tier       auth.Tier
}

func withCallAuth(ctx context.Context, credential string, tier auth.Tier) context.Context {
	return context.WithValue(ctx, callAuthKey, &callAuth{Credential: credential, Tier: tier})
}

func callAuthFrom(ctx context.Context) (*callAuth, bool) {
	value, ok := ctx.Value(callAuthKey).(*callAuth)
	return value, ok
}

type activeContext struct {
	context.Context
	context.CancelFunc
}

func newActiveContext(ctx context.Context, cancel context.CancelFunc) *activeContext {
	return &activeContext{Context: ctx, CancelFunc: cancel}
}
