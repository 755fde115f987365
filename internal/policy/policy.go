// Package policy holds the edge path-policy table: an ordered list of path
// patterns and the trust level each requires.
//
// Entries are sorted most specific first (longest literal prefix before the
// first wildcard, exact patterns ahead of wildcards, input order for ties) and
// evaluated first-match-wins. Paths no entry matches require authentication.
// A Table is immutable after construction and safe for concurrent use.
package policy

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/terraconstructs/taskgate/internal/auth"
)

// Level is the trust a path requires.
type Level int

const (
	// LevelAuthenticated requires any verified identity. It is the zero value
	// and the level of unmatched paths.
	LevelAuthenticated Level = iota
	// LevelPublic requires nothing.
	LevelPublic
	// LevelRole requires an identity holding at least one of the entry's roles.
	LevelRole
)

func (l Level) String() string {
	switch l {
	case LevelPublic:
		return "public"
	case LevelRole:
		return "role"
	default:
		return "authenticated"
	}
}

// ParseLevel is the inverse of Level.String.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "permit":
		return LevelPublic, nil
	case "authenticated", "":
		return LevelAuthenticated, nil
	case "role":
		return LevelRole, nil
	default:
		return 0, fmt.Errorf("unknown policy level %q", s)
	}
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Entry maps a path pattern to a required trust level.
type Entry struct {
	Pattern string      `json:"pattern"`
	Level   Level       `json:"level"`
	Roles   []auth.Role `json:"roles,omitempty"`
}

// Public returns an entry that requires nothing.
func Public(pattern string) Entry { return Entry{Pattern: pattern, Level: LevelPublic} }

// Authenticated returns an entry that requires any identity.
func Authenticated(pattern string) Entry {
	return Entry{Pattern: pattern, Level: LevelAuthenticated}
}

// RequireRole returns an entry that requires one of roles.
func RequireRole(pattern string, roles ...auth.Role) Entry {
	return Entry{Pattern: pattern, Level: LevelRole, Roles: roles}
}

// Allows reports whether an identity holding roles satisfies a role entry.
// Other levels never consult roles.
func (e Entry) Allows(roles auth.RoleSet) bool {
	if e.Level != LevelRole {
		return true
	}
	return roles.HasAny(e.Roles...)
}

func (e Entry) validate() error {
	if !strings.HasPrefix(e.Pattern, "/") {
		return fmt.Errorf("pattern %q must start with /", e.Pattern)
	}
	if !doublestar.ValidatePattern(e.Pattern) {
		return fmt.Errorf("invalid pattern %q", e.Pattern)
	}
	if e.Level == LevelRole && len(e.Roles) == 0 {
		return fmt.Errorf("pattern %q: role level needs at least one role", e.Pattern)
	}
	for _, r := range e.Roles {
		if !r.Valid() {
			return fmt.Errorf("pattern %q: unknown role %q", e.Pattern, r)
		}
	}
	return nil
}

// literalPrefix returns the pattern up to its first glob metacharacter.
func literalPrefix(pattern string) (prefix string, exact bool) {
	i := strings.IndexAny(pattern, "*?[{\\")
	if i < 0 {
		return pattern, true
	}
	return pattern[:i], false
}

// DefaultEntries is the built-in table.
func DefaultEntries() []Entry {
	return []Entry{
		Public("/auth/**"),
		Public("/health"),
		Public("/metrics"),
		Public("/"),
		RequireRole("/api/admin/**", auth.RoleAdmin),
		Authenticated("/api/**"),
	}
}

// Table is an ordered, immutable path-policy table.
type Table struct {
	entries []Entry
}

// NewTable validates and orders entries.
func NewTable(entries []Entry) (*Table, error) {
	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
		e.Roles = append([]auth.Role(nil), e.Roles...)
		sorted[i] = e
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, ei := literalPrefix(sorted[i].Pattern)
		pj, ej := literalPrefix(sorted[j].Pattern)
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return ei && !ej
	})
	return &Table{entries: sorted}, nil
}

// MustDefault returns the table built from DefaultEntries.
func MustDefault() *Table {
	t, err := NewTable(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the first entry matching p and whether one matched. When none
// matches, the returned entry is an authenticated entry for p.
func (t *Table) Lookup(p string) (Entry, bool) {
	p = normalize(p)
	for _, e := range t.entries {
		if ok, _ := doublestar.Match(e.Pattern, p); ok {
			return e, true
		}
		// "/x/**" also covers "/x" itself.
		if base, found := strings.CutSuffix(e.Pattern, "/**"); found && base == p {
			return e, true
		}
	}
	return Authenticated(p), false
}

// IsPublic reports whether p needs no identity.
func (t *Table) IsPublic(p string) bool {
	e, _ := t.Lookup(p)
	return e.Level == LevelPublic
}

// Entries returns the ordered entries. The slice is a copy.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
