package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetlend/internal/db"
)

func newManager(t *testing.T) (*Manager, context.Context) {
	t.Helper()
	m := NewManager(db.NewTestDB(t))
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))
	return m, ctx
}

func TestAllReturnsDefaults(t *testing.T) {
	m, ctx := newManager(t)

	all, err := m.All(ctx)
	require.NoError(t, err)
	for _, section := range []string{"email", "notifications", "loans", "frontend", "logging"} {
		assert.Contains(t, all, section)
	}
}

func TestGetFallbackForMissingKey(t *testing.T) {
	m, ctx := newManager(t)

	got, err := m.Get(ctx, "non.existing.key", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestSetAndGet(t *testing.T) {
	m, ctx := newManager(t)

	require.NoError(t, m.Set(ctx, "logging.enabled", true))

	got, err := m.Get(ctx, "logging.enabled", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	enabled, err := m.Bool(ctx, "logging.enabled")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestPartialUpdatePreservesDefaults(t *testing.T) {
	m, ctx := newManager(t)

	require.NoError(t, m.Set(ctx, "logging.level", "debug"))
	require.NoError(t, m.Set(ctx, "loans.max_active_per_user", 5))

	all, err := m.All(ctx)
	require.NoError(t, err)

	logging := all["logging"].(map[string]any)
	assert.Equal(t, "debug", logging["level"])
	assert.Equal(t, false, logging["enabled"])
	assert.Contains(t, all["email"], "from_name")
	assert.Contains(t, all["notifications"], "loan_request")

	n, err := m.Int(ctx, "loans.max_active_per_user")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	days, _ := m.Int(ctx, "loans.default_duration_days")
	assert.Equal(t, 14, days)
}

func TestResetRestoresDefaults(t *testing.T) {
	m, ctx := newManager(t)

	require.NoError(t, m.Set(ctx, "logging.enabled", true))
	require.NoError(t, m.Reset(ctx))

	got, err := m.Get(ctx, "logging.enabled", nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestSettingsPersist(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewManager(database).Set(ctx, "email.from_name", "Test Name"))

	got, err := NewManager(database).String(ctx, "email.from_name")
	require.NoError(t, err)
	assert.Equal(t, "Test Name", got)
}

func TestSetRejectsSections(t *testing.T) {
	m, ctx := newManager(t)

	assert.ErrorIs(t, m.Set(ctx, "email", "x"), ErrSectionKey)
	assert.Error(t, m.Set(ctx, " ", "x"))
}

func TestUpdateWritesSeveralKeys(t *testing.T) {
	m, ctx := newManager(t)

	require.NoError(t, m.Update(ctx, map[string]any{
		"frontend.items_per_page": 12,
		"email.from_address":      "lend@example.org",
	}))

	n, _ := m.Int(ctx, "frontend.items_per_page")
	assert.Equal(t, 12, n)
	addr, _ := m.String(ctx, "email.from_address")
	assert.Equal(t, "lend@example.org", addr)

	assert.ErrorIs(t, m.Update(ctx, map[string]any{"loans": 1}), ErrSectionKey)
}

func TestSetRejectsUnknownKeysAndWrongTypes(t *testing.T) {
	m, ctx := newManager(t)

	assert.ErrorIs(t, m.Set(ctx, "email.from_address.x", "y"), ErrUnknownKey)
	assert.ErrorIs(t, m.Set(ctx, "email.reply_to", "y"), ErrUnknownKey)
	assert.ErrorIs(t, m.Set(ctx, "loans.max_active_per_user", "not-a-number"), ErrInvalidValue)
	assert.ErrorIs(t, m.Set(ctx, "loans.max_active_per_user", 2.5), ErrInvalidValue)
	assert.ErrorIs(t, m.Set(ctx, "email.from_address", map[string]any{"x": "y"}), ErrInvalidValue)
	assert.ErrorIs(t, m.Set(ctx, "logging.enabled", "sometimes"), ErrInvalidValue)

	// A bad key fails the whole batch.
	assert.ErrorIs(t, m.Update(ctx, map[string]any{
		"frontend.items_per_page": 5,
		"frontend.theme":          "dark",
	}), ErrUnknownKey)

	addr, err := m.String(ctx, "email.from_address")
	require.NoError(t, err)
	assert.Equal(t, "", addr)
	n, err := m.Int(ctx, "loans.max_active_per_user")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = m.Int(ctx, "frontend.items_per_page")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestSetCoercesToDefaultType(t *testing.T) {
	m, ctx := newManager(t)

	// JSON numbers arrive as float64 and numeric text as strings.
	require.NoError(t, m.Update(ctx, map[string]any{
		"loans.max_active_per_user":   float64(4),
		"loans.default_duration_days": "21",
		"notifications.enabled":       "false",
	}))

	v, err := m.Get(ctx, "loans.max_active_per_user", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, v)
	n, _ := m.Int(ctx, "loans.default_duration_days")
	assert.Equal(t, 21, n)
	on, _ := m.Bool(ctx, "notifications.enabled")
	assert.False(t, on)
}

func TestLeavesAndParse(t *testing.T) {
	m, ctx := newManager(t)

	leaves, err := m.Leaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, leaves["notifications.enabled"])
	assert.Len(t, leaves, 13)

	v, err := Parse("loans.default_duration_days", " 21 ")
	require.NoError(t, err)
	assert.Equal(t, 21, v)

	v, err = Parse("frontend.public_catalog", "false")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = Parse("email.from_name", "Club")
	require.NoError(t, err)
	assert.Equal(t, "Club", v)

	_, err = Parse("loans.default_duration_days", "two weeks")
	assert.Error(t, err)
	_, err = Parse("email.signature", "x")
	assert.Error(t, err)
}
