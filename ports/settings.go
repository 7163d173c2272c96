package ports

import (
	"context"

	"github.com/rumsan/gatekeeper/core"
)

// SettingStore persists the key-value settings table.
type SettingStore interface {
	// GetAll returns every setting row, private ones included.
	GetAll(ctx context.Context) ([]core.Setting, error)

	// GetByName returns the setting with the given (uppercase) name, or
	// core.ErrNotFound.
	GetByName(ctx context.Context, name string) (*core.Setting, error)

	// Create inserts a new row, or core.ErrAlreadyExists when the name is
	// taken. The conflict check is atomic in the store.
	Create(ctx context.Context, setting core.Setting) error

	Update(ctx context.Context, setting core.Setting) error
}
