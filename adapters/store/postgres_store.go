// Package store implements the persistence ports against Postgres, with
// in-memory variants for tests and single-process use.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// Open opens a Postgres connection using the given DSN. Caller must call
// Close when done.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PostgresStore is a Postgres implementation of the CredentialStore
// interface.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a credential store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetCredential looks up a credential by service and identifier.
func (s *PostgresStore) GetCredential(ctx context.Context, service core.Service, identifier string) (*core.Credential, error) {
	const q = `SELECT id, user_id, service, service_id, last_login_at
		FROM auths WHERE service = $1 AND service_id = $2 AND deleted_at IS NULL`

	var (
		cred      core.Credential
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q, string(service), identifier).
		Scan(&cred.ID, &cred.UserID, &cred.Service, &cred.Identifier, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if lastLogin.Valid {
		cred.LastLoginAt = lastLogin.Time
	}
	return &cred, nil
}

// GetUser returns the non-deleted user with the given CUID.
func (s *PostgresStore) GetUser(ctx context.Context, cuid string) (*core.User, error) {
	const q = `SELECT id, cuid, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(wallet, '')
		FROM users WHERE cuid = $1 AND deleted_at IS NULL`
	return s.scanUser(s.db.QueryRowContext(ctx, q, cuid))
}

// GetUserByEmail returns the non-deleted user with the given email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	const q = `SELECT id, cuid, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(wallet, '')
		FROM users WHERE email = $1 AND deleted_at IS NULL`
	return s.scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *PostgresStore) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.CUID, &u.Name, &u.Email, &u.Phone, &u.Wallet)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetAuthority resolves the user's roles and the permissions attached to
// them.
func (s *PostgresStore) GetAuthority(ctx context.Context, cuid string) (*core.Authority, error) {
	const rolesQ = `SELECT r.id, r.name FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1`

	rows, err := s.db.QueryContext(ctx, rolesQ, cuid)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	defer rows.Close()

	authority := &core.Authority{}
	for rows.Next() {
		var role core.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		authority.Roles = append(authority.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}

	const permsQ = `SELECT p.action, p.subject, p.inverted, p.conditions FROM permissions p
		JOIN user_roles ur ON ur.role_id = p.role_id WHERE ur.user_id = $1`

	permRows, err := s.db.QueryContext(ctx, permsQ, cuid)
	if err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}
	defer permRows.Close()

	for permRows.Next() {
		var (
			perm       core.Permission
			conditions []byte
		)
		if err := permRows.Scan(&perm.Action, &perm.Subject, &perm.Inverted, &conditions); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &perm.Conditions); err != nil {
				return nil, fmt.Errorf("decode permission conditions: %w", err)
			}
		}
		authority.Permissions = append(authority.Permissions, perm)
	}
	if err := permRows.Err(); err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}

	return authority, nil
}

// CreateSession persists a granted login.
func (s *PostgresStore) CreateSession(ctx context.Context, session core.Session) error {
	const q = `INSERT INTO auth_sessions (session_id, client_id, auth_id, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, q,
		session.SessionID, session.ClientID, session.CredentialID, session.IP, session.UserAgent)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the credential's last successful login.
func (s *PostgresStore) UpdateLastLogin(ctx context.Context, credentialID int64) error {
	const q = `UPDATE auths SET last_login_at = now() WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, credentialID); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpsertCredential creates the credential if absent and returns it.
func (s *PostgresStore) UpsertCredential(ctx context.Context, userID string, service core.Service, identifier string) (*core.Credential, error) {
	const q = `INSERT INTO auths (user_id, service, service_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (service, service_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, service, service_id`

	var cred core.Credential
	err := s.db.QueryRowContext(ctx, q, userID, string(service), identifier).
		Scan(&cred.ID, &cred.UserID, &cred.Service, &cred.Identifier)
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}
	return &cred, nil
}

var _ ports.CredentialStore = (*PostgresStore)(nil)
