package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// MemoryStore is an in-memory implementation of the CredentialStore
// interface, intended for tests.
type MemoryStore struct {
	mu          sync.RWMutex
	nextID      int64
	credentials map[string]*core.Credential // keyed by service|identifier
	users       map[string]*core.User       // keyed by cuid
	authorities map[string]*core.Authority  // keyed by cuid
	sessions    []core.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]*core.Credential),
		users:       make(map[string]*core.User),
		authorities: make(map[string]*core.Authority),
	}
}

func credentialKey(service core.Service, identifier string) string {
	return string(service) + "|" + strings.ToLower(identifier)
}

// AddUser seeds a user together with its authority.
func (s *MemoryStore) AddUser(user core.User, authority core.Authority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	a := authority
	s.users[user.CUID] = &u
	s.authorities[user.CUID] = &a
}

// AddCredential seeds a credential and returns its assigned id.
func (s *MemoryStore) AddCredential(userID string, service core.Service, identifier string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.credentials[credentialKey(service, identifier)] = &core.Credential{
		ID:         s.nextID,
		UserID:     userID,
		Service:    service,
		Identifier: identifier,
	}
	return s.nextID
}

// Sessions returns a copy of all recorded sessions.
func (s *MemoryStore) Sessions() []core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func (s *MemoryStore) GetCredential(ctx context.Context, service core.Service, identifier string) (*core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[credentialKey(service, identifier)]
	if !ok {
		return nil, core.ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, cuid string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[cuid]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			u := *user
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (s *MemoryStore) GetAuthority(ctx context.Context, cuid string) (*core.Authority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	authority, ok := s.authorities[cuid]
	if !ok {
		return &core.Authority{}, nil
	}
	a := *authority
	return &a, nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, session core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.CreatedAt = time.Now()
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, credentialID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cred := range s.credentials {
		if cred.ID == credentialID {
			cred.LastLoginAt = time.Now()
			return nil
		}
	}
	return core.ErrCredentialNotFound
}

func (s *MemoryStore) UpsertCredential(ctx context.Context, userID string, service core.Service, identifier string) (*core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := credentialKey(service, identifier)
	if cred, ok := s.credentials[key]; ok {
		c := *cred
		return &c, nil
	}
	s.nextID++
	cred := &core.Credential{
		ID:         s.nextID,
		UserID:     userID,
		Service:    service,
		Identifier: identifier,
	}
	s.credentials[key] = cred
	c := *cred
	return &c, nil
}

var _ ports.CredentialStore = (*MemoryStore)(nil)

// MemorySettingStore is an in-memory implementation of the SettingStore
// interface.
type MemorySettingStore struct {
	mu   sync.RWMutex
	data map[string]core.Setting
}

// NewMemorySettingStore creates an empty MemorySettingStore.
func NewMemorySettingStore() *MemorySettingStore {
	return &MemorySettingStore{data: make(map[string]core.Setting)}
}

func (s *MemorySettingStore) GetAll(ctx context.Context) ([]core.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Setting, 0, len(s.data))
	for _, setting := range s.data {
		out = append(out, setting)
	}
	return out, nil
}

func (s *MemorySettingStore) GetByName(ctx context.Context, name string) (*core.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.data[name]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &setting, nil
}

func (s *MemorySettingStore) Create(ctx context.Context, setting core.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[setting.Name]; ok {
		return fmt.Errorf("%w: setting %q", core.ErrAlreadyExists, setting.Name)
	}
	s.data[setting.Name] = setting
	return nil
}

func (s *MemorySettingStore) Update(ctx context.Context, setting core.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[setting.Name]; !ok {
		return core.ErrNotFound
	}
	s.data[setting.Name] = setting
	return nil
}

var _ ports.SettingStore = (*MemorySettingStore)(nil)
