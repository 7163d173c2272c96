package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// PostgresSettingStore is a Postgres implementation of the SettingStore
// interface.
type PostgresSettingStore struct {
	db *sql.DB
}

// NewPostgresSettingStore creates a setting store backed by db.
func NewPostgresSettingStore(db *sql.DB) *PostgresSettingStore {
	return &PostgresSettingStore{db: db}
}

const settingColumns = `name, value, data_type, required_fields, is_read_only, is_private`

// GetAll returns every setting row.
func (s *PostgresSettingStore) GetAll(ctx context.Context) ([]core.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+settingColumns+` FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []core.Setting
	for rows.Next() {
		setting, err := scanSetting(rows.Scan)
		if err != nil {
			return nil, err
		}
		settings = append(settings, *setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// GetByName returns the setting with the given name.
func (s *PostgresSettingStore) GetByName(ctx context.Context, name string) (*core.Setting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+settingColumns+` FROM settings WHERE name = $1`, name)
	setting, err := scanSetting(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return setting, nil
}

// Create inserts a new setting row. Returns core.ErrAlreadyExists when a
// row with the same name is present; the conflict is resolved in the
// database so concurrent creates cannot both win.
func (s *PostgresSettingStore) Create(ctx context.Context, setting core.Setting) error {
	value, fields, err := encodeSetting(setting)
	if err != nil {
		return err
	}

	const q = `INSERT INTO settings (name, value, data_type, required_fields, is_read_only, is_private)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (name) DO NOTHING`
	result, err := s.db.ExecContext(ctx, q,
		setting.Name, value, string(setting.DataType), fields, setting.IsReadOnly, setting.IsPrivate)
	if err != nil {
		return fmt.Errorf("create setting: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create setting: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: setting %q", core.ErrAlreadyExists, setting.Name)
	}
	return nil
}

// Update replaces an existing setting row.
func (s *PostgresSettingStore) Update(ctx context.Context, setting core.Setting) error {
	value, fields, err := encodeSetting(setting)
	if err != nil {
		return err
	}

	const q = `UPDATE settings SET value = $2, data_type = $3, required_fields = $4,
		is_read_only = $5, is_private = $6 WHERE name = $1`
	_, err = s.db.ExecContext(ctx, q,
		setting.Name, value, string(setting.DataType), fields, setting.IsReadOnly, setting.IsPrivate)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return nil
}

func encodeSetting(setting core.Setting) (value, fields []byte, err error) {
	value, err = json.Marshal(setting.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("encode setting value: %w", err)
	}
	fields, err = json.Marshal(setting.RequiredFields)
	if err != nil {
		return nil, nil, fmt.Errorf("encode required fields: %w", err)
	}
	return value, fields, nil
}

func scanSetting(scan func(dest ...any) error) (*core.Setting, error) {
	var (
		setting core.Setting
		value   []byte
		fields  []byte
	)
	if err := scan(&setting.Name, &value, &setting.DataType, &fields, &setting.IsReadOnly, &setting.IsPrivate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan setting: %w", err)
	}
	if len(value) > 0 {
		if err := json.Unmarshal(value, &setting.Value); err != nil {
			return nil, fmt.Errorf("decode setting value: %w", err)
		}
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &setting.RequiredFields); err != nil {
			return nil, fmt.Errorf("decode required fields: %w", err)
		}
	}
	return &setting, nil
}

var _ ports.SettingStore = (*PostgresSettingStore)(nil)
