package domain

import (
	"fmt"
	"strings"
)

// Role is the single access label carried by an account.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RolePharmacist Role = "PHARMACIST"
	RoleUser       Role = "USER"
)

// AllRoles lists every role in descending order of privilege.
var AllRoles = []Role{RoleAdmin, RoleManager, RolePharmacist, RoleUser}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RolePharmacist, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts the role name case-insensitively, with or without the
// ROLE_ prefix older clients send.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_"))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// RoleSet is the allow-list an operation declares.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds an allow-set. Unknown roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r.Valid() {
			m[r] = struct{}{}
		}
	}
	return RoleSet{roles: m}
}

// Allows reports whether r is a member of the set.
func (s RoleSet) Allows(r Role) bool {
	_, ok := s.roles[r]
	return ok
}

// Roles returns the members in AllRoles order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for _, r := range AllRoles {
		if s.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

var (
	AnyRole    = NewRoleSet(RoleAdmin, RoleManager, RolePharmacist, RoleUser)
	StaffRoles = NewRoleSet(RoleAdmin, RoleManager, RolePharmacist)
	AdminOnly  = NewRoleSet(RoleAdmin)
)
