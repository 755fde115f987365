package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Role is an authorization tag granted to a principal.
type Role string

const (
	RoleAdmin Role = "ROLE_ADMIN"
	RoleUser  Role = "ROLE_USER"
)

// KnownRoles lists every role a principal can be assigned.
var KnownRoles = []Role{RoleAdmin, RoleUser}

// ParseRole validates s against the closed role set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	for _, known := range KnownRoles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of KnownRoles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// RoleSet is an immutable, deduplicated set of role tags. The zero value is the
// empty set.
//
// Tokens outside KnownRoles are preserved so a role claim carrying extra tags
// still grants the roles it does contain.
type RoleSet struct {
	roles []Role // sorted, unique
}

// NewRoleSet builds a set from roles, dropping blanks and duplicates.
func NewRoleSet(roles ...Role) RoleSet {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		r = Role(strings.TrimSpace(string(r)))
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return RoleSet{roles: out}
}

// ParseRoleSet splits a comma-joined role claim. The empty string yields the
// empty set.
func ParseRoleSet(claim string) RoleSet {
	if strings.TrimSpace(claim) == "" {
		return RoleSet{}
	}
	parts := strings.Split(claim, ",")
	roles := make([]Role, 0, len(parts))
	for _, p := range parts {
		roles = append(roles, Role(p))
	}
	return NewRoleSet(roles...)
}

// Has reports membership of r.
func (s RoleSet) Has(r Role) bool {
	i := sort.Search(len(s.roles), func(i int) bool { return s.roles[i] >= r })
	return i < len(s.roles) && s.roles[i] == r
}

// HasAny reports whether at least one of roles is in the set.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct roles.
func (s RoleSet) Len() int { return len(s.roles) }

// Slice returns a copy of the roles in sorted order.
func (s RoleSet) Slice() []Role {
	return append([]Role(nil), s.roles...)
}

// Strings returns the roles as plain strings in sorted order.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s.roles))
	for i, r := range s.roles {
		out[i] = string(r)
	}
	return out
}

// String renders the set as a role claim: sorted and comma-joined.
func (s RoleSet) String() string {
	return strings.Join(s.Strings(), ",")
}
