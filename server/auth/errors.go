package auth

import "errors"

// Sentinel errors surfaced to the protocol router. Both map to an
// authentication failure response, distinct from entitlement refusal.
var (
	ErrCredentialMissing = errors.New("auth: missing credential")
	ErrCredentialInvalid = errors.New("auth: invalid credential")

	// ErrCredentialSuspended is reserved for suspended keys; no driver sets
	// it yet.
	ErrCredentialSuspended = errors.New("auth: credential suspended")
)
