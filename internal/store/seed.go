package store

import "fmt"

// Reference dataset: two principals with disjoint role sets and their
// per-owner vault entries. Hashes are generated at process start so no
// password material is committed in hashed-but-reversible form.

type seedPrincipal struct {
	username string
	password string
	roles    []string
}

var seedPrincipals = []seedPrincipal{
	{username: "alice", password: "Password1!", roles: []string{"admin"}},
	{username: "bob", password: "Password2!", roles: []string{"user"}},
}

var seedSecrets = map[string]map[string]string{
	"alice": {"db_password": "AliceDB@123"},
	"bob":   {"db_password": "BobDB@123"},
}

// SeedPrincipalStore builds the reference principal store, hashing the seed
// passwords with bcrypt.
func SeedPrincipalStore() (*MemoryPrincipalStore, error) {
	principals := make([]*Principal, 0, len(seedPrincipals))
	for _, s := range seedPrincipals {
		hash, err := HashPassword(s.password)
		if err != nil {
			return nil, fmt.Errorf("seed principal %q: %w", s.username, err)
		}
		principals = append(principals, &Principal{
			Username:     s.username,
			PasswordHash: hash,
			Roles:        s.roles,
		})
	}
	return NewMemoryPrincipalStore(principals)
}

// SeedSecretStore builds the reference secret store.
func SeedSecretStore() *MemorySecretStore {
	return NewMemorySecretStore(seedSecrets)
}
