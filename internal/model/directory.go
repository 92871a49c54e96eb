package model

import (
	"fmt"
	"time"
)

// Doctor is a directory record for a practitioner.
type Doctor struct {
	Base
	UserID         *int64 `json:"user_id,omitempty" db:"user_id"`
	FirstName      string `json:"first_name" db:"first_name"`
	LastName       string `json:"last_name" db:"last_name"`
	Specialization string `json:"specialization" db:"specialization"`
	LicenseNumber  string `json:"license_number" db:"license_number"`
	Phone          string `json:"phone" db:"phone"`
	Email          string `json:"email" db:"email"`
}

// Patient is a directory record for a patient.
type Patient struct {
	Base
	UserID           *int64     `json:"user_id,omitempty" db:"user_id"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender           string     `json:"gender" db:"gender"`
	Address          string     `json:"address" db:"address"`
	Phone            string     `json:"phone" db:"phone"`
	Email            string     `json:"email" db:"email"`
	EmergencyContact string     `json:"emergency_contact" db:"emergency_contact"`
	MedicalHistory   string     `json:"medical_history" db:"medical_history"`
}

// Identity is the display-name-bearing part of a directory record.
type Identity struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
}

func (i Identity) DisplayName() string {
	return fmt.Sprintf("%s %s", i.FirstName, i.LastName)
}

func (d *Doctor) Identity() Identity {
	return Identity{ID: d.ID, FirstName: d.FirstName, LastName: d.LastName, Email: d.Email}
}

func (p *Patient) Identity() Identity {
	return Identity{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
}
