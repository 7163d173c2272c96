package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumsan/gatekeeper/adapters/cache"
	"github.com/rumsan/gatekeeper/adapters/store"
	"github.com/rumsan/gatekeeper/adapters/tokenizer"
	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

type recordedEvents struct {
	mu         sync.Mutex
	otps       []ports.OTPCreated
	challenges []ports.ChallengeCreated
	logins     []ports.LoginSucceeded
}

func (r *recordedEvents) PublishOTPCreated(ctx context.Context, e ports.OTPCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.otps = append(r.otps, e)
	return nil
}

func (r *recordedEvents) PublishChallengeCreated(ctx context.Context, e ports.ChallengeCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges = append(r.challenges, e)
	return nil
}

func (r *recordedEvents) PublishLoginSucceeded(ctx context.Context, e ports.LoginSucceeded) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, e)
	return nil
}

func (r *recordedEvents) lastOTP(t *testing.T) ports.OTPCreated {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.otps)
	return r.otps[len(r.otps)-1]
}

type stubVerifier struct {
	identity ports.FederatedIdentity
	err      error
}

func (v *stubVerifier) Verify(ctx context.Context, rawToken string) (*ports.FederatedIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	id := v.identity
	return &id, nil
}

type fixture struct {
	svc    *AuthService
	store  *store.MemoryStore
	events *recordedEvents
}

func newFixture(t *testing.T, verifier ports.IdentityVerifier) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	events := &recordedEvents{}
	tok, err := tokenizer.NewJWTTokenizer("test-signing-secret", time.Hour)
	require.NoError(t, err)

	svc, err := NewAuthService("test-app-secret", mem, cache.NewMemoryCache(), tok, events, verifier, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, store: mem, events: events}
}

func seedUser(f *fixture) core.User {
	user := core.User{ID: 7, CUID: "cm-user-7", Name: "Ada", Email: "ada@example.com"}
	f.store.AddUser(user, core.Authority{
		Roles: []core.Role{{ID: "1", Name: "admin"}},
		Permissions: []core.Permission{
			{Action: "manage", Subject: "all"},
		},
	})
	return user
}

func TestLoginWithOTP(t *testing.T) {
	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceEmail, "ada@example.com")

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1", UserAgent: "test"}

	resp, err := f.svc.RequestOTP(ctx, "ada@example.com", "", "client-1", rc)
	require.NoError(t, err)
	assert.Equal(t, "client-1", resp.ClientID)
	assert.Equal(t, "10.0.0.1", resp.IP)

	code := f.events.lastOTP(t).Code
	require.Len(t, code, 6)

	login, err := f.svc.LoginWithOTP(ctx, resp.Challenge, code, "", rc)
	require.NoError(t, err)
	assert.Equal(t, user.CUID, login.CurrentUser.CUID)
	assert.Equal(t, []string{"admin"}, login.CurrentUser.Roles)
	assert.NotEmpty(t, login.AccessToken)

	sessions := f.store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "client-1", sessions[0].ClientID)
	assert.Equal(t, login.CurrentUser.SessionID, sessions[0].SessionID)

	// signed token carries the same snapshot
	data, err := f.svc.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.CurrentUser, *data)
}

func TestLoginWithOTPSingleUse(t *testing.T) {
	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceEmail, "ada@example.com")

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1"}

	resp, err := f.svc.RequestOTP(ctx, "ada@example.com", "", "", rc)
	require.NoError(t, err)
	code := f.events.lastOTP(t).Code

	_, err = f.svc.LoginWithOTP(ctx, resp.Challenge, code, "", rc)
	require.NoError(t, err)

	_, err = f.svc.LoginWithOTP(ctx, resp.Challenge, code, "", rc)
	assert.ErrorIs(t, err, core.ErrIdentityMismatch)
}

func TestLoginWithOTPWrongCode(t *testing.T) {
	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceEmail, "ada@example.com")

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1"}

	resp, err := f.svc.RequestOTP(ctx, "ada@example.com", "", "", rc)
	require.NoError(t, err)

	_, err = f.svc.LoginWithOTP(ctx, resp.Challenge, "000000", "", rc)
	assert.ErrorIs(t, err, core.ErrIdentityMismatch)
	assert.Empty(t, f.store.Sessions())
}

func TestLoginWithOTPFromDifferentIP(t *testing.T) {
	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceEmail, "ada@example.com")

	ctx := context.Background()

	resp, err := f.svc.RequestOTP(ctx, "ada@example.com", "", "", core.RequestContext{IP: "10.0.0.1"})
	require.NoError(t, err)
	code := f.events.lastOTP(t).Code

	// correct code, but submitted from another address
	_, err = f.svc.LoginWithOTP(ctx, resp.Challenge, code, "", core.RequestContext{IP: "10.0.0.9"})
	assert.ErrorIs(t, err, core.ErrIdentityMismatch)
	assert.Empty(t, f.store.Sessions())
}

func TestLoginWithOTPTamperedChallenge(t *testing.T) {
	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceEmail, "ada@example.com")

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1"}

	resp, err := f.svc.RequestOTP(ctx, "ada@example.com", "", "", rc)
	require.NoError(t, err)
	code := f.events.lastOTP(t).Code

	tampered := resp.Challenge[:len(resp.Challenge)-4] + "AAAA"
	_, err = f.svc.LoginWithOTP(ctx, tampered, code, "", rc)
	assert.ErrorIs(t, err, core.ErrDecryptionFailed)
}

func TestRequestOTPUnknownCredential(t *testing.T) {
	f := newFixture(t, nil)
	seedUser(f)

	_, err := f.svc.RequestOTP(context.Background(), "nobody@example.com", "", "", core.RequestContext{IP: "10.0.0.1"})
	assert.ErrorIs(t, err, core.ErrCredentialNotFound)
}

func TestLoginWithWallet(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceWallet, address)

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1"}

	resp, err := f.svc.WalletChallenge(ctx, "client-w", rc)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Challenge)

	sig, err := crypto.Sign(accounts.TextHash([]byte(resp.Challenge)), key)
	require.NoError(t, err)

	login, err := f.svc.LoginWithWallet(ctx, resp.Challenge, hexutil.Encode(sig), rc)
	require.NoError(t, err)
	assert.Equal(t, user.CUID, login.CurrentUser.CUID)
	require.Len(t, f.store.Sessions(), 1)
	assert.Equal(t, "client-w", f.store.Sessions()[0].ClientID)
}

func TestLoginWithWalletFromDifferentIP(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	f := newFixture(t, nil)
	user := seedUser(f)
	f.store.AddCredential(user.CUID, core.ServiceWallet, address)

	ctx := context.Background()

	resp, err := f.svc.WalletChallenge(ctx, "", core.RequestContext{IP: "10.0.0.1"})
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(resp.Challenge)), key)
	require.NoError(t, err)

	_, err = f.svc.LoginWithWallet(ctx, resp.Challenge, hexutil.Encode(sig), core.RequestContext{IP: "10.0.0.9"})
	assert.ErrorIs(t, err, core.ErrIdentityMismatch)
}

func TestLoginWithWalletUnknownSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := newFixture(t, nil)
	seedUser(f)

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1"}

	resp, err := f.svc.WalletChallenge(ctx, "", rc)
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(resp.Challenge)), key)
	require.NoError(t, err)

	_, err = f.svc.LoginWithWallet(ctx, resp.Challenge, hexutil.Encode(sig), rc)
	assert.ErrorIs(t, err, core.ErrCredentialNotFound)
}

func TestLoginWithWalletGarbageSignature(t *testing.T) {
	f := newFixture(t, nil)
	seedUser(f)

	ctx := context.Background()
	rc := core.RequestContext{IP: "10.0.0.1"}

	resp, err := f.svc.WalletChallenge(ctx, "", rc)
	require.NoError(t, err)

	_, err = f.svc.LoginWithWallet(ctx, resp.Challenge, "0xdeadbeef", rc)
	assert.ErrorIs(t, err, core.ErrIdentityMismatch)
}

func TestLoginWithGoogle(t *testing.T) {
	verifier := &stubVerifier{identity: ports.FederatedIdentity{
		Subject: "google-sub-1",
		Email:   "ada@example.com",
		Name:    "Ada",
	}}
	f := newFixture(t, verifier)
	user := seedUser(f)

	login, err := f.svc.LoginWithGoogle(context.Background(), "id-token", "", core.RequestContext{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user.CUID, login.CurrentUser.CUID)

	cred, err := f.store.GetCredential(context.Background(), core.ServiceGoogle, "google-sub-1")
	require.NoError(t, err)
	assert.Equal(t, user.CUID, cred.UserID)
}

func TestLoginWithGoogleLinksWallet(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	verifier := &stubVerifier{identity: ports.FederatedIdentity{
		Subject: "google-sub-1",
		Email:   "ada@example.com",
	}}
	f := newFixture(t, verifier)
	user := seedUser(f)

	idToken := "id-token"
	sig, err := crypto.Sign(accounts.TextHash([]byte(idToken)), key)
	require.NoError(t, err)

	login, err := f.svc.LoginWithGoogle(context.Background(), idToken, hexutil.Encode(sig), core.RequestContext{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user.CUID, login.CurrentUser.CUID)

	cred, err := f.store.GetCredential(context.Background(), core.ServiceWallet, address)
	require.NoError(t, err)
	assert.Equal(t, user.CUID, cred.UserID)
}

func TestLoginWithGoogleUnknownEmail(t *testing.T) {
	verifier := &stubVerifier{identity: ports.FederatedIdentity{
		Subject: "google-sub-1",
		Email:   "nobody@example.com",
	}}
	f := newFixture(t, verifier)
	seedUser(f)

	_, err := f.svc.LoginWithGoogle(context.Background(), "id-token", "", core.RequestContext{IP: "10.0.0.1"})
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestLoginWithGoogleNotConfigured(t *testing.T) {
	f := newFixture(t, nil)
	seedUser(f)

	_, err := f.svc.LoginWithGoogle(context.Background(), "id-token", "", core.RequestContext{IP: "10.0.0.1"})
	assert.Error(t, err)
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	_, err := NewAuthService("", store.NewMemoryStore(), cache.NewMemoryCache(), nil, nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrSecretMissing)
}
