package domain

import "strings"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleHoster   Role = "hoster"
	RoleDriver   Role = "driver"
	RoleProvider Role = "provider"
	RoleCustomer Role = "customer"
	RoleMechanic Role = "mechanic"
)

var roles = map[string]Role{
	string(RoleAdmin):    RoleAdmin,
	string(RoleUser):     RoleUser,
	string(RoleHoster):   RoleHoster,
	string(RoleDriver):   RoleDriver,
	string(RoleProvider): RoleProvider,
	string(RoleCustomer): RoleCustomer,
	string(RoleMechanic): RoleMechanic,
}

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, bool) {
	r, ok := roles[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// NormalizeRole maps unknown or empty input to RoleUser.
func NormalizeRole(s string) Role {
	if r, ok := ParseRole(s); ok {
		return r
	}
	return RoleUser
}

func (r Role) Valid() bool {
	_, ok := roles[string(r)]
	return ok
}

func (r Role) String() string { return string(r) }
