package store

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MemoryPrincipalStore is an immutable in-memory PrincipalStore.
type MemoryPrincipalStore struct {
	principals map[string]*Principal
}

// NewMemoryPrincipalStore builds a store from the given principals.
// The map is keyed by username; duplicate usernames are an error.
func NewMemoryPrincipalStore(principals []*Principal) (*MemoryPrincipalStore, error) {
	m := make(map[string]*Principal, len(principals))
	for _, p := range principals {
		if p.Username == "" {
			return nil, fmt.Errorf("principal with empty username")
		}
		if _, exists := m[p.Username]; exists {
			return nil, fmt.Errorf("duplicate principal %q", p.Username)
		}
		m[p.Username] = p
	}
	return &MemoryPrincipalStore{principals: m}, nil
}

// Get returns the principal for username, or false if none exists.
func (s *MemoryPrincipalStore) Get(username string) (*Principal, bool) {
	p, ok := s.principals[username]
	return p, ok
}

// MemorySecretStore is an immutable in-memory SecretStore.
type MemorySecretStore struct {
	// owner → secret name → value
	secrets map[string]map[string]string
}

// NewMemorySecretStore builds a store from a per-owner secret table.
func NewMemorySecretStore(secrets map[string]map[string]string) *MemorySecretStore {
	return &MemorySecretStore{secrets: secrets}
}

// Get returns the secret value owned by owner under name.
func (s *MemorySecretStore) Get(owner, name string) (string, bool) {
	ownerSecrets, ok := s.secrets[owner]
	if !ok {
		return "", false
	}
	value, ok := ownerSecrets[name]
	return value, ok
}

// HashPassword produces a bcrypt hash for seeding principal records.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
