// Package settings manages the application's key-value settings table. The
// service is an owned, injected object: it loads all rows once into memory
// and re-loads after every write, so reads never touch the store.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// Protected replaces private values and required fields in listings.
const Protected = "****"

const defaultPerPage = 20

// ListQuery filters and paginates List results.
type ListQuery struct {
	Name     string
	Private  *bool
	ReadOnly *bool
	Page     int
	PerPage  int
}

// ListResult is one page of settings plus the total row count.
type ListResult struct {
	Data  []core.Setting `json:"data"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
}

// Service reads and writes settings through a SettingStore and serves
// dotted-path lookups from an in-memory snapshot.
type Service struct {
	store ports.SettingStore
	log   logrus.FieldLogger

	mu     sync.RWMutex
	loaded map[string]any
}

// NewService builds the service. Call Load before serving lookups.
func NewService(store ports.SettingStore, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:  store,
		log:    log,
		loaded: make(map[string]any),
	}
}

// Load replaces the in-memory snapshot with all rows from the store.
func (s *Service) Load(ctx context.Context) error {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}
	loaded := make(map[string]any, len(all))
	for _, setting := range all {
		loaded[setting.Name] = setting.Value
	}
	s.mu.Lock()
	s.loaded = loaded
	s.mu.Unlock()
	s.log.WithField("count", len(loaded)).Info("settings loaded")
	return nil
}

// Get resolves a dotted path such as "SMTP.HOST" against the snapshot.
// Path segments are case-insensitive.
func (s *Service) Get(path string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value any = s.loaded
	for _, key := range strings.Split(path, ".") {
		key = strings.ToUpper(key)
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: setting %q", core.ErrNotFound, key)
		}
		value, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: setting %q", core.ErrNotFound, key)
		}
	}
	return value, nil
}

// Public returns a non-private setting by name, unmasked.
func (s *Service) Public(ctx context.Context, name string) (*core.Setting, error) {
	setting, err := s.store.GetByName(ctx, strings.ToUpper(name))
	if err != nil {
		return nil, err
	}
	if setting.IsPrivate {
		return nil, fmt.Errorf("%w: public setting %q", core.ErrNotFound, strings.ToUpper(name))
	}
	return setting, nil
}

// GetByName returns a setting by name with private values masked.
func (s *Service) GetByName(ctx context.Context, name string) (*core.Setting, error) {
	setting, err := s.store.GetByName(ctx, strings.ToUpper(name))
	if err != nil {
		return nil, err
	}
	masked := mask(*setting)
	return &masked, nil
}

// List returns a filtered page of settings, private values masked.
func (s *Service) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]core.Setting, 0, len(all))
	for _, setting := range all {
		if query.Name != "" && !strings.Contains(strings.ToUpper(setting.Name), strings.ToUpper(query.Name)) {
			continue
		}
		if query.Private != nil && setting.IsPrivate != *query.Private {
			continue
		}
		if query.ReadOnly != nil && setting.IsReadOnly != *query.ReadOnly {
			continue
		}
		filtered = append(filtered, mask(setting))
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })

	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	start := (page - 1) * perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + perPage
	if end > len(filtered) {
		end = len(filtered)
	}

	return &ListResult{Data: filtered[start:end], Total: len(filtered), Page: page}, nil
}

// Create normalizes and stores a new setting, then reloads the snapshot.
// Fails with core.ErrAlreadyExists when the name is taken; the store
// resolves the conflict, so concurrent creates cannot both succeed.
func (s *Service) Create(ctx context.Context, setting core.Setting) (*core.Setting, error) {
	normalized, err := normalize(setting)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, normalized); err != nil {
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return &normalized, nil
}

// Update replaces an existing setting's value and flags. Read-only settings
// reject updates with core.ErrSettingReadOnly.
func (s *Service) Update(ctx context.Context, setting core.Setting) (*core.Setting, error) {
	normalized, err := normalize(setting)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetByName(ctx, normalized.Name)
	if err != nil {
		return nil, err
	}
	if existing.IsReadOnly {
		return nil, fmt.Errorf("%w: %s", core.ErrSettingReadOnly, existing.Name)
	}
	if err := s.store.Update(ctx, normalized); err != nil {
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return &normalized, nil
}

func mask(setting core.Setting) core.Setting {
	if setting.IsPrivate {
		setting.Value = Protected
		setting.RequiredFields = []string{Protected}
	}
	return setting
}

// normalize uppercases the name and required fields, infers the data type,
// and for object values capitalizes first-level keys and enforces the
// required fields. Non-object values carry no required fields.
func normalize(setting core.Setting) (core.Setting, error) {
	setting.Name = strings.ToUpper(setting.Name)

	fields := make([]string, 0, len(setting.RequiredFields))
	for _, f := range setting.RequiredFields {
		fields = append(fields, strings.ToUpper(f))
	}

	dataType, err := dataTypeOf(setting.Value)
	if err != nil {
		return core.Setting{}, err
	}
	setting.DataType = dataType

	if dataType != core.SettingObject {
		setting.RequiredFields = nil
		return setting, nil
	}

	obj := capitalizeKeys(setting.Value.(map[string]any))
	if len(fields) > 0 {
		var missing []string
		for _, f := range fields {
			if _, ok := obj[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return core.Setting{}, fmt.Errorf("required fields missing in value: %s", strings.Join(missing, ", "))
		}
		trimmed := make(map[string]any, len(fields))
		for _, f := range fields {
			trimmed[f] = obj[f]
		}
		obj = trimmed
	}
	setting.Value = obj
	setting.RequiredFields = fields
	return setting, nil
}

func dataTypeOf(value any) (core.SettingDataType, error) {
	switch value.(type) {
	case string:
		return core.SettingString, nil
	case int, int32, int64, float32, float64:
		return core.SettingNumber, nil
	case bool:
		return core.SettingBoolean, nil
	case map[string]any:
		return core.SettingObject, nil
	default:
		return "", fmt.Errorf("unsupported setting value type %T", value)
	}
}

// capitalizeKeys uppercases first-level keys only.
func capitalizeKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[strings.ToUpper(k)] = v
	}
	return out
}
