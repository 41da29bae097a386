package iam

import (
	"context"
	"fmt"
	"log"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleargate/pamapi/internal/audit"
	"github.com/cleargate/pamapi/internal/policy"
	"github.com/cleargate/pamapi/internal/store"
	"github.com/cleargate/pamapi/internal/token"
	"github.com/cleargate/pamapi/internal/vault"
)

// readAllAction gates every vault route.
const readAllAction = "read_all"

// Audit status labels. These are the externally consumed strings; the
// LoginStatus values are the API-facing ones.
const (
	auditLoginEndpoint = "/login"
	auditLoginAction   = "login_attempt"
	auditActionAction  = "action_performed"
	auditVaultAction   = "vault_access"
)

// Dependencies lists the collaborators of the pipeline. All fields are
// required.
type Dependencies struct {
	Principals store.PrincipalStore
	Tokens     *token.Manager
	Policy     *policy.Engine
	Vault      *vault.Vault
	Audit      audit.Recorder
}

type service struct {
	principals store.PrincipalStore
	tokens     *token.Manager
	policy     *policy.Engine
	vault      *vault.Vault
	audit      audit.Recorder
	limiter    *loginLimiter
}

// NewService validates deps and builds the pipeline.
func NewService(deps Dependencies) (Service, error) {
	switch {
	case deps.Principals == nil:
		return nil, fmt.Errorf("principal store is required")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("token manager is required")
	case deps.Policy == nil:
		return nil, fmt.Errorf("policy engine is required")
	case deps.Vault == nil:
		return nil, fmt.Errorf("vault is required")
	case deps.Audit == nil:
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		principals: deps.Principals,
		tokens:     deps.Tokens,
		policy:     deps.Policy,
		vault:      deps.Vault,
		audit:      deps.Audit,
		limiter:    newLoginLimiter(),
	}, nil
}

// Login implements the authentication flow: throttle, principal lookup,
// constant-time password comparison, MFA gate, credential issuance. Every
// outcome is audited before returning.
func (s *service) Login(ctx context.Context, username, password, mfaToken string) (LoginResult, error) {
	if !s.limiter.allow(username) {
		s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "rate_limited")
		return LoginResult{Status: StatusRateLimited}, nil
	}

	principal, ok := s.principals.Get(username)
	if !ok {
		s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "failed_user_not_found")
		return LoginResult{Status: StatusUnknownPrincipal}, nil
	}

	if err := bcrypt.CompareHashAndPassword(principal.PasswordHash, []byte(password)); err != nil {
		s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "failed")
		return LoginResult{Status: StatusInvalidCredential}, nil
	}

	if principal.MFAEnabled {
		if mfaToken == "" {
			// Pending state, not a failure: the caller must come back with a
			// second factor before any credential is issued.
			s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "mfa_required")
			return LoginResult{Status: StatusMFARequired}, nil
		}
		if !totp.Validate(mfaToken, principal.MFASecret) {
			s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "failed")
			return LoginResult{Status: StatusInvalidCredential}, nil
		}
	}

	signed, err := s.tokens.Issue(principal.Username, principal.Roles)
	if err != nil {
		s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "error")
		return LoginResult{}, fmt.Errorf("issue session credential: %w", err)
	}

	s.audit.Record(username, auditLoginEndpoint, auditLoginAction, "success")
	return LoginResult{Status: StatusSuccess, Token: signed}, nil
}

// ValidateAndExtract is the single shared bearer path for authorized routes.
// Token failures are audited by the transport caller, which knows the
// endpoint the credential was presented to.
func (s *service) ValidateAndExtract(authorization string) (*token.Claims, error) {
	raw, err := token.ParseBearer(authorization)
	if err != nil {
		return nil, err
	}
	return s.tokens.Validate(raw)
}

// Authorize evaluates the policy and audits the decision under the action's
// endpoint.
func (s *service) Authorize(subject string, roles []string, action string) bool {
	endpoint := "/action/" + action
	if s.policy.IsAllowed(roles, action) {
		s.audit.Record(subject, endpoint, auditActionAction, "success")
		return true
	}
	s.audit.Record(subject, endpoint, auditActionAction, "denied")
	return false
}

// LeaseSecret gates the vault behind read_all, then issues the lease. The
// policy check happens before any vault lookup; a denied caller learns
// nothing about whether the secret exists.
func (s *service) LeaseSecret(subject string, roles []string, name string) (SecretGrant, error) {
	endpoint := "/vault/" + name

	if !s.policy.IsAllowed(roles, readAllAction) {
		s.audit.Record(subject, endpoint, auditVaultAction, "denied")
		return SecretGrant{}, ErrPermissionDenied
	}

	value, expiresAt, err := s.vault.Lease(subject, name, vault.DefaultLeaseTTL)
	if err != nil {
		s.audit.Record(subject, endpoint, auditVaultAction, "failed")
		return SecretGrant{}, err
	}

	grant := SecretGrant{
		Value:       value,
		Fingerprint: vault.Fingerprint(value),
		ExpiresAt:   expiresAt,
	}

	log.Printf("vault: leased %s to %s (fp=%s)", name, subject, vault.FormatFingerprint(grant.Fingerprint))
	s.audit.Record(subject, endpoint, auditVaultAction, "success")
	return grant, nil
}
