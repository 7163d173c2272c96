package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rumsan/gatekeeper/challenge"
	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/internal/eth"
	"github.com/rumsan/gatekeeper/ports"
)

// AuthService orchestrates the two-step login flow: it issues challenges
// bound to the requester, verifies second factors against them, and mints
// sessions with signed access tokens.
type AuthService struct {
	secret    string
	store     ports.CredentialStore
	cache     ports.Cache
	tokenizer ports.Tokenizer
	events    ports.EventPublisher
	identity  ports.IdentityVerifier
	log       logrus.FieldLogger
}

// NewAuthService builds the orchestrator. The identity verifier may be nil
// when federated login is not configured.
func NewAuthService(
	secret string,
	store ports.CredentialStore,
	cache ports.Cache,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	identity ports.IdentityVerifier,
	log logrus.FieldLogger,
) (*AuthService, error) {
	if secret == "" {
		return nil, core.ErrSecretMissing
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		secret:    secret,
		store:     store,
		cache:     cache,
		tokenizer: tokenizer,
		events:    events,
		identity:  identity,
		log:       log,
	}, nil
}

func otpKey(svc core.Service, address string) string {
	return fmt.Sprintf("otp:%s:%s", svc, address)
}

// RequestOTP generates a one-time code for the given address, stores its
// hash with a short TTL, and returns a challenge bound to the requester's
// IP. The code itself only travels through the event bus, never back to
// the caller.
func (s *AuthService) RequestOTP(ctx context.Context, address string, svc core.Service, clientID string, rc core.RequestContext) (core.AuthResponse, error) {
	if svc == "" {
		detected, ok := core.ServiceForAddress(address)
		if !ok {
			return core.AuthResponse{}, fmt.Errorf("%w: unrecognized address format", core.ErrCredentialNotFound)
		}
		svc = detected
	}

	cred, err := s.store.GetCredential(ctx, svc, address)
	if err != nil {
		return core.AuthResponse{}, err
	}

	code, err := generateOTP()
	if err != nil {
		return core.AuthResponse{}, fmt.Errorf("generate otp: %w", err)
	}
	if err := s.cache.Set(ctx, otpKey(svc, address), hashOTP(code), challenge.ClientTokenLifetime*time.Second); err != nil {
		return core.AuthResponse{}, err
	}

	resp, err := challenge.Create(s.secret, core.CreateChallenge{
		ClientID: clientID,
		IP:       rc.IP,
		Address:  address,
	})
	if err != nil {
		return core.AuthResponse{}, err
	}

	if err := s.events.PublishOTPCreated(ctx, ports.OTPCreated{
		Service:  svc,
		Address:  address,
		Code:     code,
		ClientID: resp.ClientID,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish otp event")
	}
	if err := s.events.PublishChallengeCreated(ctx, ports.ChallengeCreated{
		ClientID: resp.ClientID,
		Address:  address,
		IP:       rc.IP,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish challenge event")
	}

	s.log.WithFields(logrus.Fields{
		"service":  svc,
		"clientId": resp.ClientID,
		"userId":   cred.UserID,
	}).Info("otp issued")

	return resp, nil
}

// LoginWithOTP verifies a one-time code against a previously issued
// challenge and grants a session on success. The code is single use.
func (s *AuthService) LoginWithOTP(ctx context.Context, challengeToken, code string, svc core.Service, rc core.RequestContext) (*core.LoginResponse, error) {
	ch, err := challenge.Verify(s.secret, challengeToken, challenge.ClientTokenLifetime)
	if err != nil {
		return nil, err
	}
	if ch.Address == "" {
		return nil, fmt.Errorf("%w: challenge carries no address", core.ErrIdentityMismatch)
	}
	if ch.IP != rc.IP {
		return nil, fmt.Errorf("%w: request origin differs from challenge", core.ErrIdentityMismatch)
	}

	if svc == "" {
		detected, ok := core.ServiceForAddress(ch.Address)
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized address format", core.ErrIdentityMismatch)
		}
		svc = detected
	}

	cred, err := s.store.GetCredential(ctx, svc, ch.Address)
	if err != nil {
		return nil, err
	}

	key := otpKey(svc, ch.Address)
	stored, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active code", core.ErrIdentityMismatch)
		}
		return nil, err
	}
	if !otpEqual(code, stored) {
		return nil, fmt.Errorf("%w: code does not match", core.ErrIdentityMismatch)
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WithError(err).Warn("failed to invalidate otp")
	}

	return s.grantSession(ctx, cred, svc, ch.ClientID, rc)
}

// WalletChallenge issues a challenge for wallet-signature login, bound to
// the requester's IP.
func (s *AuthService) WalletChallenge(ctx context.Context, clientID string, rc core.RequestContext) (core.AuthResponse, error) {
	resp, err := challenge.Create(s.secret, core.CreateChallenge{
		ClientID: clientID,
		IP:       rc.IP,
	})
	if err != nil {
		return core.AuthResponse{}, err
	}

	if err := s.events.PublishChallengeCreated(ctx, ports.ChallengeCreated{
		ClientID: resp.ClientID,
		IP:       rc.IP,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish challenge event")
	}
	return resp, nil
}

// LoginWithWallet recovers the signer of a personal_sign signature over the
// challenge token and grants a session for the matching wallet credential.
func (s *AuthService) LoginWithWallet(ctx context.Context, challengeToken, signature string, rc core.RequestContext) (*core.LoginResponse, error) {
	ch, err := challenge.Verify(s.secret, challengeToken, challenge.ClientTokenLifetime)
	if err != nil {
		return nil, err
	}
	if ch.IP != rc.IP {
		return nil, fmt.Errorf("%w: request origin differs from challenge", core.ErrIdentityMismatch)
	}

	addr, err := eth.RecoverAddress([]byte(challengeToken), signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIdentityMismatch, err)
	}

	cred, err := s.store.GetCredential(ctx, core.ServiceWallet, addr.Hex())
	if err != nil {
		return nil, err
	}
	return s.grantSession(ctx, cred, core.ServiceWallet, ch.ClientID, rc)
}

// LoginWithGoogle verifies a Google ID token, links the wallet when a
// signature over the raw ID token is supplied, and grants a session. The
// account must already exist under the token's email.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken, walletSignature string, rc core.RequestContext) (*core.LoginResponse, error) {
	if s.identity == nil {
		return nil, fmt.Errorf("federated login is not configured")
	}

	ident, err := s.identity.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, ident.Email)
	if err != nil {
		return nil, err
	}

	svc := core.ServiceGoogle
	identifier := ident.Subject
	if walletSignature != "" {
		addr, rerr := eth.RecoverAddress([]byte(idToken), walletSignature)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrIdentityMismatch, rerr)
		}
		svc = core.ServiceWallet
		identifier = addr.Hex()
	}

	cred, err := s.store.UpsertCredential(ctx, user.CUID, svc, identifier)
	if err != nil {
		return nil, err
	}
	return s.grantSession(ctx, cred, svc, uuid.New().String(), rc)
}

// ValidateAccessToken checks a signed access token and returns the identity
// snapshot embedded in it.
func (s *AuthService) ValidateAccessToken(token string) (*core.TokenData, error) {
	return s.tokenizer.Verify(token)
}

// grantSession is the shared tail of every successful login: it loads the
// user and their authority, records the session, and signs an access token
// carrying the roles and permissions snapshot.
func (s *AuthService) grantSession(ctx context.Context, cred *core.Credential, svc core.Service, clientID string, rc core.RequestContext) (*core.LoginResponse, error) {
	user, err := s.store.GetUser(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	authority, err := s.store.GetAuthority(ctx, user.CUID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateLastLogin(ctx, cred.ID); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	if err := s.store.CreateSession(ctx, core.Session{
		SessionID:    sessionID,
		ClientID:     clientID,
		CredentialID: cred.ID,
		IP:           rc.IP,
		UserAgent:    rc.UserAgent,
	}); err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(authority.Roles))
	for _, r := range authority.Roles {
		roles = append(roles, r.Name)
	}

	data := core.TokenData{
		UserID:      user.ID,
		CUID:        user.CUID,
		Roles:       roles,
		Permissions: authority.Permissions,
		SessionID:   sessionID,
	}
	token, err := s.tokenizer.Sign(data)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishLoginSucceeded(ctx, ports.LoginSucceeded{
		UserCUID:  user.CUID,
		Service:   svc,
		SessionID: sessionID,
		IP:        rc.IP,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish login event")
	}

	s.log.WithFields(logrus.Fields{
		"cuid":    user.CUID,
		"service": svc,
		"session": sessionID,
	}).Info("login succeeded")

	return &core.LoginResponse{CurrentUser: data, AccessToken: token}, nil
}
