package iam

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleargate/pamapi/internal/policy"
	"github.com/cleargate/pamapi/internal/store"
	"github.com/cleargate/pamapi/internal/token"
	"github.com/cleargate/pamapi/internal/vault"
)

const testMFASecret = "JBSWY3DPEHPK3PXP"

type recordedEvent struct {
	actor    string
	endpoint string
	action   string
	status   string
}

// mockRecorder captures audit events for assertions.
type mockRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockRecorder) Record(actor, endpoint, action, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{actor: actor, endpoint: endpoint, action: action, status: status})
}

func (m *mockRecorder) last(t *testing.T) recordedEvent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.events)
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// countingSecretStore counts lookups to verify denial short-circuits.
type countingSecretStore struct {
	inner store.SecretStore
	gets  int
}

func (c *countingSecretStore) Get(owner, name string) (string, bool) {
	c.gets++
	return c.inner.Get(owner, name)
}

type testFixture struct {
	service Service
	audit   *mockRecorder
	secrets *countingSecretStore
	tokens  *token.Manager
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	aliceHash, err := store.HashPassword("Password1!")
	require.NoError(t, err)
	bobHash, err := store.HashPassword("Password2!")
	require.NoError(t, err)
	carolHash, err := store.HashPassword("Password3!")
	require.NoError(t, err)

	principals, err := store.NewMemoryPrincipalStore([]*store.Principal{
		{Username: "alice", PasswordHash: aliceHash, Roles: []string{"admin"}},
		{Username: "bob", PasswordHash: bobHash, Roles: []string{"user"}},
		{Username: "carol", PasswordHash: carolHash, Roles: []string{"auditor"},
			MFAEnabled: true, MFASecret: testMFASecret},
	})
	require.NoError(t, err)

	secrets := &countingSecretStore{inner: store.NewMemorySecretStore(map[string]map[string]string{
		"alice": {"db_password": "AliceDB@123"},
	})}

	tokens, err := token.NewManager("iam-test-key")
	require.NoError(t, err)

	engine, err := policy.NewEngine(policy.DefaultPolicy())
	require.NoError(t, err)

	recorder := &mockRecorder{}
	svc, err := NewService(Dependencies{
		Principals: principals,
		Tokens:     tokens,
		Policy:     engine,
		Vault:      vault.New(secrets),
		Audit:      recorder,
	})
	require.NoError(t, err)

	return &testFixture{service: svc, audit: recorder, secrets: secrets, tokens: tokens}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Login(context.Background(), "alice", "Password1!", "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	require.NotEmpty(t, result.Token)

	claims, err := f.tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"admin"}, claims.Roles)

	event := f.audit.last(t)
	assert.Equal(t, recordedEvent{actor: "alice", endpoint: "/login", action: "login_attempt", status: "success"}, event)
}

func TestLogin_UnknownPrincipal(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Login(context.Background(), "mallory", "whatever", "")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknownPrincipal, result.Status)
	assert.Empty(t, result.Token)

	assert.Equal(t, "failed_user_not_found", f.audit.last(t).status)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Login(context.Background(), "alice", "wrong", "")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalidCredential, result.Status)
	assert.Empty(t, result.Token)

	assert.Equal(t, "failed", f.audit.last(t).status)
}

func TestLogin_MFARequired(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Login(context.Background(), "carol", "Password3!", "")
	require.NoError(t, err)
	assert.Equal(t, StatusMFARequired, result.Status)
	assert.Empty(t, result.Token)

	assert.Equal(t, "mfa_required", f.audit.last(t).status)
}

func TestLogin_MFAValidCode(t *testing.T) {
	f := newFixture(t)

	code, err := totp.GenerateCode(testMFASecret, time.Now())
	require.NoError(t, err)

	result, err := f.service.Login(context.Background(), "carol", "Password3!", code)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEmpty(t, result.Token)
}

func TestLogin_MFAInvalidCode(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Login(context.Background(), "carol", "Password3!", "000000")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalidCredential, result.Status)
	assert.Empty(t, result.Token)
}

func TestLogin_RateLimited(t *testing.T) {
	f := newFixture(t)

	var last LoginResult
	for i := 0; i <= loginBurst; i++ {
		var err error
		last, err = f.service.Login(context.Background(), "alice", "wrong", "")
		require.NoError(t, err)
	}
	assert.Equal(t, StatusRateLimited, last.Status)
	assert.Equal(t, "rate_limited", f.audit.last(t).status)

	// Other usernames keep their own budget.
	result, err := f.service.Login(context.Background(), "bob", "Password2!", "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestValidateAndExtract(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Login(context.Background(), "bob", "Password2!", "")
	require.NoError(t, err)

	claims, err := f.service.ValidateAndExtract("Bearer " + result.Token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, []string{"user"}, claims.Roles)

	_, err = f.service.ValidateAndExtract(result.Token)
	assert.ErrorIs(t, err, token.ErrMalformedAuthorization)

	_, err = f.service.ValidateAndExtract("Bearer not.a.token")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.service.Authorize("alice", []string{"admin"}, "delete_all"))
	event := f.audit.last(t)
	assert.Equal(t, "/action/delete_all", event.endpoint)
	assert.Equal(t, "action_performed", event.action)
	assert.Equal(t, "success", event.status)

	assert.False(t, f.service.Authorize("bob", []string{"user"}, "delete_all"))
	event = f.audit.last(t)
	assert.Equal(t, "denied", event.status)

	// Pure evaluation: identical inputs, identical answers.
	for i := 0; i < 10; i++ {
		assert.False(t, f.service.Authorize("bob", []string{"user"}, "delete_all"))
	}
}

func TestLeaseSecret_Success(t *testing.T) {
	f := newFixture(t)

	grant, err := f.service.LeaseSecret("alice", []string{"admin"}, "db_password")
	require.NoError(t, err)
	assert.Equal(t, "AliceDB@123", grant.Value)
	assert.Equal(t, vault.Fingerprint("AliceDB@123"), grant.Fingerprint)
	assert.WithinDuration(t, time.Now().Add(vault.DefaultLeaseTTL), grant.ExpiresAt, time.Second)

	event := f.audit.last(t)
	assert.Equal(t, recordedEvent{actor: "alice", endpoint: "/vault/db_password", action: "vault_access", status: "success"}, event)
}

func TestLeaseSecret_DeniedSkipsVault(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.LeaseSecret("bob", []string{"user"}, "db_password")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 0, f.secrets.gets)

	event := f.audit.last(t)
	assert.Equal(t, "denied", event.status)
}

func TestLeaseSecret_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.LeaseSecret("alice", []string{"admin"}, "api_key")
	assert.ErrorIs(t, err, vault.ErrSecretNotFound)
	assert.Equal(t, "failed", f.audit.last(t).status)
}

func TestNewService_RequiresAllDependencies(t *testing.T) {
	_, err := NewService(Dependencies{})
	require.Error(t, err)
}

func TestEveryLoginOutcomeIsAudited(t *testing.T) {
	f := newFixture(t)

	before := f.audit.count()
	_, _ = f.service.Login(context.Background(), "mallory", "x", "")
	_, _ = f.service.Login(context.Background(), "alice", "wrong", "")
	_, _ = f.service.Login(context.Background(), "carol", "Password3!", "")
	_, _ = f.service.Login(context.Background(), "alice", "Password1!", "")
	assert.Equal(t, before+4, f.audit.count())
}
