package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/taskgate/internal/auth"
)

func TestDefaultTable_Lookup(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		path    string
		level   Level
		matched bool
	}{
		{"/auth/signin", LevelPublic, true},
		{"/auth/signup", LevelPublic, true},
		{"/auth", LevelPublic, true},
		{"/health", LevelPublic, true},
		{"/metrics", LevelPublic, true},
		{"/", LevelPublic, true},
		{"/api/tasks", LevelAuthenticated, true},
		{"/api/tasks/3/complete", LevelAuthenticated, true},
		{"/api/admin/policies", LevelRole, true},
		{"/api/admin", LevelRole, true},
		{"/unknown", LevelAuthenticated, false},
		{"/healthz", LevelAuthenticated, false},
		{"/authx/signin", LevelAuthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, matched := table.Lookup(tt.path)
			assert.Equal(t, tt.level, e.Level)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestLookup_CleansPath(t *testing.T) {
	table := MustDefault()

	e, _ := table.Lookup("/auth/../api/admin/policies")
	assert.Equal(t, LevelRole, e.Level)

	e, _ = table.Lookup("/api//admin/./policies")
	assert.Equal(t, LevelRole, e.Level)
}

func TestNewTable_MostSpecificFirst(t *testing.T) {
	table, err := NewTable([]Entry{
		Authenticated("/api/**"),
		Public("/api/public/**"),
		RequireRole("/api/admin/**", auth.RoleAdmin),
	})
	require.NoError(t, err)

	entries := table.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "/api/public/**", entries[0].Pattern)
	assert.Equal(t, "/api/admin/**", entries[1].Pattern)
	assert.Equal(t, "/api/**", entries[2].Pattern)

	assert.True(t, table.IsPublic("/api/public/docs"))
	assert.False(t, table.IsPublic("/api/tasks"))
}

func TestNewTable_ExactBeforeWildcard(t *testing.T) {
	table, err := NewTable([]Entry{
		Authenticated("/api/**"),
		Public("/api/"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/", table.Entries()[0].Pattern)
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable([]Entry{{Pattern: "api/**", Level: LevelPublic}})
	assert.Error(t, err, "relative pattern")

	_, err = NewTable([]Entry{{Pattern: "/api/[", Level: LevelPublic}})
	assert.Error(t, err, "bad glob")

	_, err = NewTable([]Entry{{Pattern: "/api/admin/**", Level: LevelRole}})
	assert.Error(t, err, "role level without roles")

	_, err = NewTable([]Entry{RequireRole("/x", auth.Role("ROLE_ROOT"))})
	assert.Error(t, err, "unknown role")
}

func TestEntry_Allows(t *testing.T) {
	admin := RequireRole("/api/admin/**", auth.RoleAdmin)
	assert.True(t, admin.Allows(auth.NewRoleSet(auth.RoleAdmin)))
	assert.True(t, admin.Allows(auth.ParseRoleSet("ROLE_USER,ROLE_ADMIN")))
	assert.False(t, admin.Allows(auth.NewRoleSet(auth.RoleUser)))
	assert.False(t, admin.Allows(auth.RoleSet{}))

	assert.True(t, Authenticated("/api/**").Allows(auth.RoleSet{}))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"public":        LevelPublic,
		"PERMIT":        LevelPublic,
		"authenticated": LevelAuthenticated,
		"":              LevelAuthenticated,
		"role":          LevelRole,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("admin")
	assert.Error(t, err)
}

func TestEntries_JSON(t *testing.T) {
	b, err := json.Marshal(RequireRole("/api/admin/**", auth.RoleAdmin))
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"/api/admin/**","level":"role","roles":["ROLE_ADMIN"]}`, string(b))
}
