// Package store holds the static principal and secret tables behind lookup
// interfaces so a real deployment can swap in a durable backend without
// touching the authenticator or vault logic.
package store

// Principal is an identity record with credentials and roles.
//
// Principals are seeded once at process start and never mutated afterwards;
// there is no user-management API in this design.
type Principal struct {
	// Username is the unique lookup key.
	Username string

	// PasswordHash is the bcrypt hash of the principal's password.
	PasswordHash []byte

	// Roles lists the role names attached to this principal.
	Roles []string

	// MFAEnabled gates login on a second factor.
	MFAEnabled bool

	// MFASecret is the TOTP secret, set only when MFAEnabled is true.
	MFASecret string
}

// PrincipalStore resolves usernames to principal records.
type PrincipalStore interface {
	// Get returns the principal for username, or false if none exists.
	Get(username string) (*Principal, bool)
}

// SecretStore resolves the static per-owner secret table.
type SecretStore interface {
	// Get returns the secret value owned by owner under name, or false if
	// the owner has no entry or no secret of that name.
	Get(owner, name string) (string, bool)
}
