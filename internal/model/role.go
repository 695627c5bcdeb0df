package model

// Roles.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleAdmin   = "admin"
	RoleEditor  = "editor"
	RoleUser    = "user"
)

// Roles lists every role an account may hold.
var Roles = []string{RoleOwner, RoleManager, RoleAdmin, RoleEditor, RoleUser}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleSet is a set of roles allowed to perform an operation. The hierarchy is
// a partial order, so authorization is set membership, not a level compare.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...string) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Allows reports whether role is a member of the set. Unknown and empty
// roles fail closed.
func (s RoleSet) Allows(role string) bool {
	if role == "" {
		return false
	}
	_, ok := s[role]
	return ok
}

// Named policies.
var (
	// Elevated may manage the catalog and accounts, but not roles.
	Elevated = NewRoleSet(RoleOwner, RoleManager, RoleAdmin)
	// OwnerOnly may change roles and delete accounts.
	OwnerOnly = NewRoleSet(RoleOwner)
)
