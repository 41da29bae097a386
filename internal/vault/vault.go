// Package vault leases named secrets to their owning principal for a bounded
// duration. The vault holds a single override-on-issue lease slot per
// (owner, secret) pair; there is no queue or history of leases.
package vault

import (
	"errors"
	"sync"
	"time"

	"github.com/cleargate/pamapi/internal/store"
)

// DefaultLeaseTTL is the lease window applied when the caller does not
// specify one.
const DefaultLeaseTTL = 5 * time.Minute

// ErrSecretNotFound is returned when the owner has no entry in the secret
// table, or the named secret is not one of that owner's secrets.
var ErrSecretNotFound = errors.New("secret not found")

type leaseKey struct {
	owner string
	name  string
}

// Vault issues time-bounded secret leases from a static secret table.
//
// Lease always refreshes the slot expiry before returning the value; the
// separate CheckValid predicate is never invoked by the issuance path. An
// already-expired, unrenewed lease therefore cannot be observed through
// Lease, only through CheckValid.
type Vault struct {
	secrets store.SecretStore

	// mu serializes concurrent issuances for the same slot so two writers
	// cannot interleave a partial expiry update.
	mu     sync.Mutex
	leases map[leaseKey]time.Time
}

// New creates a Vault over the given secret table.
func New(secrets store.SecretStore) *Vault {
	return &Vault{
		secrets: secrets,
		leases:  make(map[leaseKey]time.Time),
	}
}

// Lease issues the named secret to owner, (re)writing the lease expiry to
// now + ttl. Each call refreshes the lease window for that (owner, name)
// pair, overwriting any prior expiry, and returns the secret value
// unconditionally. Issuance always refreshes first, so a previously expired
// lease never blocks it.
//
// The returned expiry is the one written by this call, not a re-read of the
// slot; under concurrent issuances each caller sees its own refresh.
func (v *Vault) Lease(owner, name string, ttl time.Duration) (string, time.Time, error) {
	value, ok := v.secrets.Get(owner, name)
	if !ok {
		return "", time.Time{}, ErrSecretNotFound
	}

	v.mu.Lock()
	expiresAt := time.Now().Add(ttl)
	v.leases[leaseKey{owner: owner, name: name}] = expiresAt
	v.mu.Unlock()

	return value, expiresAt, nil
}

// CheckValid reports whether the current lease for (owner, name) is
// unexpired. It is a read-only predicate: it never refreshes the lease and
// is not called before Lease returns a value. A lease with an expiry in the
// past is invalid, as is a slot that was never leased.
func (v *Vault) CheckValid(owner, name string) bool {
	if _, ok := v.secrets.Get(owner, name); !ok {
		return false
	}

	v.mu.Lock()
	expiresAt, ok := v.leases[leaseKey{owner: owner, name: name}]
	v.mu.Unlock()

	return ok && !time.Now().After(expiresAt)
}

// Expiry returns the current lease expiry for (owner, name), if any.
func (v *Vault) Expiry(owner, name string) (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	expiresAt, ok := v.leases[leaseKey{owner: owner, name: name}]
	return expiresAt, ok
}
