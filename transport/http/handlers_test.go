package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumsan/gatekeeper/adapters/cache"
	"github.com/rumsan/gatekeeper/adapters/store"
	"github.com/rumsan/gatekeeper/adapters/tokenizer"
	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
	"github.com/rumsan/gatekeeper/service"
	"github.com/rumsan/gatekeeper/settings"
)

type nopEvents struct {
	mu   sync.Mutex
	otps []ports.OTPCreated
}

func (n *nopEvents) PublishOTPCreated(ctx context.Context, e ports.OTPCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, e)
	return nil
}

func (n *nopEvents) PublishChallengeCreated(ctx context.Context, e ports.ChallengeCreated) error {
	return nil
}

func (n *nopEvents) PublishLoginSucceeded(ctx context.Context, e ports.LoginSucceeded) error {
	return nil
}

func (n *nopEvents) lastOTP(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.otps)
	return n.otps[len(n.otps)-1].Code
}

type testServer struct {
	router   *gin.Engine
	store    *store.MemoryStore
	settings *store.MemorySettingStore
	events   *nopEvents
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemoryStore()
	settingStore := store.NewMemorySettingStore()
	events := &nopEvents{}
	tok, err := tokenizer.NewJWTTokenizer("transport-test-secret", time.Hour)
	require.NoError(t, err)

	authService, err := service.NewAuthService("transport-app-secret", mem, cache.NewMemoryCache(), tok, events, nil, nil)
	require.NoError(t, err)

	settingsService := settings.NewService(settingStore, nil)
	require.NoError(t, settingsService.Load(context.Background()))

	return &testServer{
		router:   SetupRouter(authService, settingsService),
		store:    mem,
		settings: settingStore,
		events:   events,
	}
}

func (s *testServer) post(t *testing.T, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(t *testing.T, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) put(t *testing.T, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func seedAdmin(s *testServer) core.User {
	user := core.User{ID: 1, CUID: "cm-admin", Name: "Ada", Email: "ada@example.com"}
	s.store.AddUser(user, core.Authority{
		Roles:       []core.Role{{ID: "1", Name: "admin"}},
		Permissions: []core.Permission{{Action: "manage", Subject: "all"}},
	})
	s.store.AddCredential(user.CUID, core.ServiceEmail, user.Email)
	return user
}

// login runs the full OTP flow and returns the access token.
func (s *testServer) login(t *testing.T, address string) string {
	t.Helper()
	w := s.post(t, "/auth/otp", gin.H{"address": address}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var challenge core.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	w = s.post(t, "/auth/login", gin.H{"challenge": challenge.Challenge, "otp": s.events.lastOTP(t)}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var login core.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken
}

func TestOTPLoginFlow(t *testing.T) {
	s := newTestServer(t)
	user := seedAdmin(s)

	w := s.post(t, "/auth/otp", gin.H{"address": user.Email, "clientId": "web-1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var challenge core.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))
	assert.Equal(t, "web-1", challenge.ClientID)
	assert.NotEmpty(t, challenge.Challenge)

	w = s.post(t, "/auth/login", gin.H{"challenge": challenge.Challenge, "otp": s.events.lastOTP(t)}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var login core.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, user.CUID, login.CurrentUser.CUID)
	assert.Equal(t, []string{"admin"}, login.CurrentUser.Roles)
}

func TestLoginRejectionsAreUniform(t *testing.T) {
	s := newTestServer(t)
	user := seedAdmin(s)

	w := s.post(t, "/auth/otp", gin.H{"address": user.Email}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var challenge core.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	// wrong code, tampered token, and unknown address all produce the
	// same status and body
	wrongCode := s.post(t, "/auth/login", gin.H{"challenge": challenge.Challenge, "otp": "000000"}, "")
	tampered := s.post(t, "/auth/login", gin.H{"challenge": challenge.Challenge[:len(challenge.Challenge)-4] + "AAAA", "otp": s.events.lastOTP(t)}, "")
	unknown := s.post(t, "/auth/otp", gin.H{"address": "nobody@example.com"}, "")

	for _, w := range []*httptest.ResponseRecorder{wrongCode, tampered, unknown} {
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
	}
}

func TestWalletLoginFlow(t *testing.T) {
	s := newTestServer(t)
	user := seedAdmin(s)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s.store.AddCredential(user.CUID, core.ServiceWallet, crypto.PubkeyToAddress(key.PublicKey).Hex())

	w := s.post(t, "/auth/wallet", gin.H{"clientId": "wallet-1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var challenge core.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Challenge)), key)
	require.NoError(t, err)

	w = s.post(t, "/auth/wallet/login", gin.H{"challenge": challenge.Challenge, "signature": hexutil.Encode(sig)}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var login core.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, user.CUID, login.CurrentUser.CUID)
}

func TestMeRequiresToken(t *testing.T) {
	s := newTestServer(t)
	user := seedAdmin(s)

	w := s.get(t, "/app/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.get(t, "/app/me", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(t, user.Email)
	w = s.get(t, "/app/me", token)
	require.Equal(t, http.StatusOK, w.Code)

	var me core.TokenData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, user.CUID, me.CUID)
}

func TestSettingsRequireAbility(t *testing.T) {
	s := newTestServer(t)
	admin := seedAdmin(s)

	viewer := core.User{ID: 2, CUID: "cm-viewer", Email: "viewer@example.com"}
	s.store.AddUser(viewer, core.Authority{
		Roles:       []core.Role{{ID: "2", Name: "viewer"}},
		Permissions: []core.Permission{{Action: "read", Subject: "public"}},
	})
	s.store.AddCredential(viewer.CUID, core.ServiceEmail, viewer.Email)

	adminToken := s.login(t, admin.Email)
	viewerToken := s.login(t, viewer.Email)

	w := s.post(t, "/app/settings", core.Setting{Name: "app_name", Value: "gatekeeper"}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.post(t, "/app/settings", core.Setting{Name: "app_name", Value: "again"}, adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.get(t, "/app/settings", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.get(t, "/app/settings", viewerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.put(t, "/app/settings/app_name", gin.H{"value": "renamed"}, viewerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.put(t, "/app/settings/app_name", gin.H{"value": "renamed"}, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateReadOnlySetting(t *testing.T) {
	s := newTestServer(t)
	admin := seedAdmin(s)
	token := s.login(t, admin.Email)

	require.NoError(t, s.settings.Create(context.Background(), core.Setting{
		Name: "LOCKED", Value: "v", DataType: core.SettingString, IsReadOnly: true,
	}))

	w := s.put(t, "/app/settings/locked", gin.H{"value": "changed"}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPublicSettingEndpoint(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.settings.Create(context.Background(), core.Setting{
		Name: "APP_NAME", Value: "gatekeeper", DataType: core.SettingString,
	}))
	require.NoError(t, s.settings.Create(context.Background(), core.Setting{
		Name: "SECRET_KEY", Value: "s3cr3t", DataType: core.SettingString, IsPrivate: true,
	}))

	w := s.get(t, "/settings/app_name", "")
	require.Equal(t, http.StatusOK, w.Code)

	var setting core.Setting
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &setting))
	assert.Equal(t, "gatekeeper", setting.Value)

	w = s.get(t, "/settings/secret_key", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.get(t, "/settings/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
