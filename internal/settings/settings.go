package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/erazemk/assetlend/internal/store"
)

// StorageKey is the settings row holding the saved overrides.
const StorageKey = "catalog_settings"

// Errors returned by Set and Update.
var (
	ErrSectionKey   = errors.New("cannot overwrite a settings section")
	ErrUnknownKey   = errors.New("unknown setting")
	ErrInvalidValue = errors.New("invalid setting value")
)

// Defaults returns the built-in settings tree.
func Defaults() map[string]any {
	return map[string]any{
		"email": map[string]any{
			"from_name":    "Asset Lending",
			"from_address": "",
		},
		"notifications": map[string]any{
			"enabled":       true,
			"loan_request":  true,
			"loan_approved": true,
			"loan_rejected": true,
			"loan_returned": true,
		},
		"loans": map[string]any{
			"max_active_per_user":   3,
			"default_duration_days": 14,
		},
		"frontend": map[string]any{
			"items_per_page": 20,
			"public_catalog": true,
		},
		"logging": map[string]any{
			"enabled": false,
			"level":   "info",
		},
	}
}

// Manager reads and writes dotted-key settings. Saved overrides are merged
// over Defaults on every read; concurrent writers race with last-writer-wins.
type Manager struct {
	DB *sql.DB

	mu sync.Mutex
}

// NewManager creates a settings manager backed by the settings table.
func NewManager(db *sql.DB) *Manager {
	return &Manager{DB: db}
}

// Name identifies the module.
func (m *Manager) Name() string { return "settings" }

// Activate checks that the saved settings can be read.
func (m *Manager) Activate(ctx context.Context) error {
	_, err := m.load(ctx)
	return err
}

// Deactivate keeps saved settings.
func (m *Manager) Deactivate(context.Context) error { return nil }

// Get returns the value at a dotted key, or fallback when it is not set.
func (m *Manager) Get(ctx context.Context, key string, fallback any) (any, error) {
	v, err := m.load(ctx)
	if err != nil {
		return fallback, err
	}
	if !v.IsSet(key) {
		return fallback, nil
	}
	return v.Get(key), nil
}

// Bool returns the boolean at key, false when unset.
func (m *Manager) Bool(ctx context.Context, key string) (bool, error) {
	v, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	return v.GetBool(key), nil
}

// Int returns the integer at key, 0 when unset.
func (m *Manager) Int(ctx context.Context, key string) (int, error) {
	v, err := m.load(ctx)
	if err != nil {
		return 0, err
	}
	return v.GetInt(key), nil
}

// String returns the string at key, "" when unset.
func (m *Manager) String(ctx context.Context, key string) (string, error) {
	v, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	return v.GetString(key), nil
}

// All returns the full settings tree with overrides applied.
func (m *Manager) All(ctx context.Context) (map[string]any, error) {
	v, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}

// Set saves value at a dotted key. Other keys keep their saved or default values.
func (m *Manager) Set(ctx context.Context, key string, value any) error {
	return m.Update(ctx, map[string]any{key: value})
}

// Update applies several dotted-key values in one write. Every key must name
// a default leaf and every value must convert to that leaf's type; otherwise
// nothing is written.
func (m *Manager) Update(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	leaves := flatten("", Defaults())
	clean := make(map[string]any, len(values))
	for _, k := range keys {
		key, v, err := coerce(leaves, k, values[k])
		if err != nil {
			return err
		}
		clean[key] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	overrides, err := m.overrides(ctx)
	if err != nil {
		return err
	}
	o := viper.New()
	if err := o.MergeConfigMap(overrides); err != nil {
		return fmt.Errorf("merging settings: %w", err)
	}
	for _, k := range keys {
		key := normalizeKey(k)
		o.Set(key, clean[key])
	}

	data, err := json.Marshal(o.AllSettings())
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return store.PutSetting(ctx, m.DB, StorageKey, string(data))
}

// Reset drops every saved override.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.DeleteSetting(ctx, m.DB, StorageKey)
}

// Leaves returns every leaf setting keyed by its dotted name.
func (m *Manager) Leaves(ctx context.Context) (map[string]any, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	return flatten("", all), nil
}

// Parse converts a form value to the type of the key's default value.
func Parse(key, raw string) (any, error) {
	_, v, err := coerce(flatten("", Defaults()), key, strings.TrimSpace(raw))
	return v, err
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// coerce checks key against the default leaves and converts value to the
// type of the default.
func coerce(leaves map[string]any, key string, value any) (string, any, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", nil, fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	if isSection(key) {
		return "", nil, fmt.Errorf("%w: %s", ErrSectionKey, key)
	}
	def, ok := leaves[key]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	var (
		v   any
		err error
	)
	switch def.(type) {
	case bool:
		v, err = cast.ToBoolE(value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s expects a boolean", ErrInvalidValue, key)
		}
	case int:
		if f, isFloat := value.(float64); isFloat && f != float64(int64(f)) {
			return "", nil, fmt.Errorf("%w: %s expects a whole number", ErrInvalidValue, key)
		}
		v, err = cast.ToIntE(value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s expects a number", ErrInvalidValue, key)
		}
	default:
		switch value.(type) {
		case map[string]any, []any:
			return "", nil, fmt.Errorf("%w: %s expects text", ErrInvalidValue, key)
		}
		v, err = cast.ToStringE(value)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s expects text", ErrInvalidValue, key)
		}
	}
	return key, v, nil
}

func (m *Manager) overrides(ctx context.Context) (map[string]any, error) {
	raw, ok, err := store.GetSetting(ctx, m.DB, StorageKey)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if !ok || raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding saved settings: %w", err)
	}
	return out, nil
}

func (m *Manager) load(ctx context.Context) (*viper.Viper, error) {
	overrides, err := m.overrides(ctx)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range flatten("", Defaults()) {
		v.SetDefault(key, value)
	}
	if err := v.MergeConfigMap(overrides); err != nil {
		return nil, fmt.Errorf("merging settings: %w", err)
	}
	return v, nil
}

func isSection(key string) bool {
	_, ok := Defaults()[key]
	return ok
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}
