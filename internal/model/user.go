package model

import "fmt"

// Role is the permission class of an authenticated caller.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RolePatient      Role = "patient"
	RoleReceptionist Role = "receptionist"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient, RoleReceptionist:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on any appointment.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleReceptionist
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is an account that can log in.
type User struct {
	Base
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int64
	Email  string
	Role   Role
}
