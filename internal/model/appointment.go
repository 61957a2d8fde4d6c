package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// legalTransitions is the appointment status state machine enforced on
// updates. Terminal states have no outgoing edges.
var legalTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal status transition.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is the canonical appointment shape. Whatever schema
// generation stored the row, after normalization it carries exactly one
// doctor_id, one date (YYYY-MM-DD) and one time (HH:MM:SS). Date and
// time are empty strings when the stored row had no temporal data.
type Appointment struct {
	ID        uuid.UUID         `db:"id" json:"id"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Date      string            `db:"date" json:"date"`
	Time      string            `db:"time" json:"time"`
	Notes     string            `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// StartsAt combines the canonical date and time. The zero time is
// returned when either field is empty or malformed; callers treat that
// as "unknown".
func (a *Appointment) StartsAt() time.Time {
	if a.Date == "" || a.Time == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", a.Date+" "+a.Time, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

type CreateAppointmentRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	Date      string    `json:"date" binding:"required,datetime=2006-01-02"`
	Time      string    `json:"time" binding:"required,datetime=15:04:05"`
	Notes     string    `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
}

// AppointmentWithDoctor decorates an appointment with the doctor's
// public profile, for user-facing lists.
type AppointmentWithDoctor struct {
	Appointment
	Doctor *Doctor `json:"doctor,omitempty"`
}

// AppointmentEvent is the payload published for appointment changes.
type AppointmentEvent struct {
	Type        string       `json:"type"`
	Appointment *Appointment `json:"appointment"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

const (
	EventAppointmentCreated       = "appointment.created"
	EventAppointmentStatusChanged = "appointment.status_changed"
)

// DoctorAppointmentsChannel names the broker channel carrying one
// doctor's appointment events.
func DoctorAppointmentsChannel(doctorID uuid.UUID) string {
	return fmt.Sprintf("appointments.doctor.%s", doctorID)
}
