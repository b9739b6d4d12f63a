package domain

import "fmt"

// Role classifies an authenticated actor. The set is closed: custody rules
// key off these values, so unknown roles are rejected at parse time.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCourier   Role = "courier"
	RoleCustodian Role = "custodian"
)

var validRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleCourier:   true,
	RoleCustodian: true,
}

// ParseRole constructs a Role from external input (JWT claims, requests).
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// IsValid checks membership in the closed role set.
func (r Role) IsValid() bool { return validRoles[r] }

func (r Role) String() string { return string(r) }

// CanCarry reports whether the role may be assigned custody tasks.
func (r Role) CanCarry() bool { return r == RoleCourier || r == RoleCustodian }
