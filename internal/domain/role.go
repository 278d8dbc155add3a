package domain

import (
	"fmt"
	"strings"
)

// Role is a named capability class. Comparisons between roles ignore case.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
	RoleUser    Role = "User"
)

// Roles lists every role the API knows about, in display order.
var Roles = []Role{RoleAdmin, RoleDoctor, RolePatient, RoleUser}

// ParseRole folds case and returns the canonical spelling of s.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid role %q: %w", s, ErrBadRequest)
}

// Is reports whether r names the same role as other, ignoring case.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

func (r Role) String() string { return string(r) }
