// Package iam composes the credential store, token manager, policy engine,
// secret vault and audit logger into the request pipeline exposed to the
// transport layer.
package iam

import (
	"context"
	"errors"
	"time"

	"github.com/cleargate/pamapi/internal/token"
)

// LoginStatus is the outcome of a login attempt. MFARequired and RateLimited
// are pending/throttled states, not errors; the caller is expected to retry
// with more (or later) input.
type LoginStatus string

const (
	StatusSuccess           LoginStatus = "success"
	StatusMFARequired       LoginStatus = "mfa_required"
	StatusUnknownPrincipal  LoginStatus = "unknown_principal"
	StatusInvalidCredential LoginStatus = "invalid_credential"
	StatusRateLimited       LoginStatus = "rate_limited"
)

// ErrPermissionDenied is returned when no role in the presented role set
// authorizes the requested action.
var ErrPermissionDenied = errors.New("permission denied")

// LoginResult carries the outcome of Login. Token is set only on
// StatusSuccess.
type LoginResult struct {
	Status LoginStatus
	Token  string
}

// SecretGrant is the result of a successful secret lease.
type SecretGrant struct {
	// Value is the leased secret value.
	Value string

	// Fingerprint is the base58 SHA-256 fingerprint of the value, safe to
	// log and correlate.
	Fingerprint string

	// ExpiresAt is the lease expiry written by this issuance.
	ExpiresAt time.Time
}

// Service is the access-control pipeline. Every terminal outcome of every
// operation is reported to the audit logger before the operation returns.
type Service interface {
	// Login verifies username/password (and the MFA gate) against the
	// credential store and mints a session credential on success.
	Login(ctx context.Context, username, password, mfaToken string) (LoginResult, error)

	// ValidateAndExtract parses a "Bearer <token>" authorization value and
	// validates the embedded session credential. Failures are one of
	// token.ErrMalformedAuthorization, token.ErrInvalidToken or
	// token.ErrExpiredToken.
	ValidateAndExtract(authorization string) (*token.Claims, error)

	// Authorize reports whether roles allow action, recording the decision
	// for subject in the audit trail.
	Authorize(subject string, roles []string, action string) bool

	// LeaseSecret leases the named secret to subject. The role set must
	// authorize "read_all" first; on denial no vault lookup is performed and
	// ErrPermissionDenied is returned. An unknown secret returns
	// vault.ErrSecretNotFound.
	LeaseSecret(subject string, roles []string, name string) (SecretGrant, error)
}
