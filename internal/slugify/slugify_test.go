package slugify

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup struct {
	owners map[string]snowflake.ID
	calls  int
	err    error
}

func (m *mapLookup) FindSlugOwner(_ context.Context, slug string) (snowflake.ID, bool, error) {
	m.calls++
	if m.err != nil {
		return 0, false, m.err
	}
	id, ok := m.owners[slug]
	return id, ok, nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Blue Widget":     "blue-widget",
		"  Café   Crème ": "cafe-creme",
		"a -- b":          "a-b",
		"!!!":             "",
		"Widget":          "widget",
		"Fish & Chips":    "fish-chips",
		"user@host":       "userhost",
		"v1.5":            "v15",
		"a~b":             "ab",
		"日本":              "",
		"snake_case item": "snake_case-item",
		"_lead-":          "lead",
		"Straße":          "strae",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}

	long := Make(strings.Repeat("ab ", 200))
	assert.LessOrEqual(t, len([]rune(long)), MaxBaseLength)
	assert.Regexp(t, slugPattern, long)
}

func TestUniqueFreeSlug(t *testing.T) {
	lookup := &mapLookup{owners: map[string]snowflake.ID{}}

	slug, err := Unique(context.Background(), "Widget", "1", lookup, 0)
	require.NoError(t, err)
	assert.Equal(t, "widget", slug)
	assert.Equal(t, 1, lookup.calls)
}

func TestUniqueAppendsOwnerID(t *testing.T) {
	lookup := &mapLookup{owners: map[string]snowflake.ID{
		"widget":    17,
		"widget-17": 42,
	}}

	slug, err := Unique(context.Background(), "Widget", "1", lookup, 0)
	require.NoError(t, err)
	assert.Equal(t, "widget-17-42", slug)
	assert.Regexp(t, slugPattern, slug)
}

func TestUniqueFallsBackWhenSourceIsEmpty(t *testing.T) {
	lookup := &mapLookup{owners: map[string]snowflake.ID{}}

	slug, err := Unique(context.Background(), "???", "1733000000000", lookup, 0)
	require.NoError(t, err)
	assert.Equal(t, "1733000000000", slug)
}

func TestUniqueStopsAfterMaxAttempts(t *testing.T) {
	lookup := &mapLookup{owners: map[string]snowflake.ID{
		"a":     1,
		"a-1":   1,
		"a-1-1": 1,
	}}

	_, err := Unique(context.Background(), "a", "9", lookup, 3)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, 3, lookup.calls)
}

func TestUniqueStopsBeforeExceedingMaxLength(t *testing.T) {
	base := strings.Repeat("a", MaxBaseLength)
	owners := map[string]snowflake.ID{}
	candidate := base
	for i := 0; i < DefaultMaxAttempts; i++ {
		owners[candidate] = snowflake.ID(1733000000000000000 + int64(i))
		candidate = candidate + "-" + owners[candidate].String()
	}
	lookup := &mapLookup{owners: owners}

	_, err := Unique(context.Background(), base, "9", lookup, 0)
	assert.ErrorIs(t, err, ErrTooLong)
	assert.Equal(t, 3, lookup.calls)
}

func TestUniquePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Unique(context.Background(), "a", "9", &mapLookup{err: boom}, 0)
	assert.ErrorIs(t, err, boom)
}
