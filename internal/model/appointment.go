package model

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined out of s.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusCompleted
}

type Appointment struct {
	Base
	PatientID       int64             `db:"patient_id" json:"patient_id"`
	DoctorID        int64             `db:"doctor_id" json:"doctor_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	Reason          string            `db:"reason" json:"reason"`
	Status          AppointmentStatus `db:"status" json:"status"`
}

// EnrichedAppointment is an appointment joined with directory display names.
type EnrichedAppointment struct {
	Appointment
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
}

// CreateAppointmentRequest is the body of POST /addAppointments.
type CreateAppointmentRequest struct {
	PatientID       int64             `json:"patient_id" binding:"required,gt=0"`
	DoctorID        int64             `json:"doctor_id" binding:"required,gt=0"`
	AppointmentDate string            `json:"appointment_date" binding:"required"`
	Reason          string            `json:"reason" binding:"required,notblank,max=1000"`
	Status          AppointmentStatus `json:"status" binding:"omitempty,oneof=scheduled"`
}

// RescheduleAppointmentRequest is the body of PUT /appointments/:id.
type RescheduleAppointmentRequest struct {
	AppointmentDate string            `json:"appointment_date" binding:"required"`
	Reason          string            `json:"reason" binding:"required,notblank,max=1000"`
	Status          AppointmentStatus `json:"status" binding:"omitempty,oneof=scheduled"`
}

// AppointmentView is the per-role read model.
type AppointmentView struct {
	Role         Role                  `json:"role"`
	Appointments []EnrichedAppointment `json:"appointments"`
	// Patients is set for doctors: the distinct patients they have appointments with.
	Patients []PatientSummary `json:"patients,omitempty"`
}

type PatientSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseAppointmentDate accepts an ISO-8601 date or date-time. dateOnly is true
// when the value carried no time component.
func ParseAppointmentDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("appointment_date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("appointment_date %q is not an ISO-8601 date or date-time", s)
}
