// Package schema reconciles the appointment table's schema generations.
// The store has carried three shapes over time: doctor_id with separate
// date/time columns (current), doctor_id with a combined
// appointment_date timestamp, and the oldest rows with therapist_id and
// a combined timestamp. All generations must stay readable, and writes
// try the newest shape first.
package schema

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	combinedLayout = "2006-01-02 15:04:05"
)

// RawAppointment is an appointment row as stored, before any shape is
// assumed. Every generation-specific column is nullable.
type RawAppointment struct {
	ID              uuid.UUID      `db:"id"`
	PatientID       uuid.UUID      `db:"patient_id"`
	DoctorID        *uuid.UUID     `db:"doctor_id"`
	TherapistID     *uuid.UUID     `db:"therapist_id"`
	Status          sql.NullString `db:"status"`
	Date            sql.NullString `db:"date"`
	Time            sql.NullString `db:"time"`
	AppointmentDate sql.NullTime   `db:"appointment_date"`
	Notes           sql.NullString `db:"notes"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Normalize maps a raw row of unknown generation to the canonical
// appointment. It is a pure function and never fails: rows missing both
// temporal representations come out with empty date and time strings.
func Normalize(raw *RawAppointment) *model.Appointment {
	apt := &model.Appointment{
		ID:        raw.ID,
		PatientID: raw.PatientID,
		Status:    model.AppointmentStatusPending,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}

	if raw.Status.Valid && raw.Status.String != "" {
		apt.Status = model.AppointmentStatus(raw.Status.String)
	}
	if raw.Notes.Valid {
		apt.Notes = raw.Notes.String
	}

	// therapist_id is a legacy alias for the same relationship.
	switch {
	case raw.DoctorID != nil:
		apt.DoctorID = *raw.DoctorID
	case raw.TherapistID != nil:
		apt.DoctorID = *raw.TherapistID
	}

	apt.Date, apt.Time = normalizeTemporal(raw)
	return apt
}

// normalizeTemporal prefers explicit day/time fields; otherwise it
// decomposes the combined timestamp into the local calendar date and
// zero-padded wall-clock time. No timezone offset is stored, so the
// decomposition is in the local time of the evaluating process.
func normalizeTemporal(raw *RawAppointment) (date, clock string) {
	if raw.Date.Valid && raw.Date.String != "" {
		date = raw.Date.String
		if raw.Time.Valid {
			clock = padClock(raw.Time.String)
		}
		return date, clock
	}

	if raw.AppointmentDate.Valid {
		local := raw.AppointmentDate.Time.Local()
		return local.Format(dateLayout), local.Format(timeLayout)
	}

	return "", ""
}

// padClock normalizes "HH:MM" to "HH:MM:SS". Anything already carrying
// seconds passes through unchanged.
func padClock(s string) string {
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format(timeLayout)
	}
	return s
}

// CombineTimestamp builds the combined appointment_date value from the
// canonical date and time strings.
func CombineTimestamp(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(combinedLayout, date+" "+padClock(clock), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to combine timestamp: %w", err)
	}
	return t, nil
}

// WriteShape is one generation's insert payload. Shapes are tried in
// order; the first accepted insert wins and the appointment is stored
// in that generation's columns.
type WriteShape struct {
	Name    string
	Columns []string
	Values  func(apt *model.Appointment) ([]interface{}, error)
}

// WriteShapes lists the known generations, newest first. The chain is
// defensive scaffolding against migration drift: against any one
// deployed store the same branch resolves every time.
var WriteShapes = []WriteShape{
	{
		Name:    "doctor_id+date/time",
		Columns: []string{"id", "patient_id", "doctor_id", "status", "date", "time", "notes", "created_at", "updated_at"},
		Values: func(apt *model.Appointment) ([]interface{}, error) {
			return []interface{}{
				apt.ID, apt.PatientID, apt.DoctorID, apt.Status,
				apt.Date, apt.Time, apt.Notes, apt.CreatedAt, apt.UpdatedAt,
			}, nil
		},
	},
	{
		Name:    "doctor_id+appointment_date",
		Columns: []string{"id", "patient_id", "doctor_id", "status", "appointment_date", "notes", "created_at", "updated_at"},
		Values: func(apt *model.Appointment) ([]interface{}, error) {
			ts, err := CombineTimestamp(apt.Date, apt.Time)
			if err != nil {
				return nil, err
			}
			return []interface{}{
				apt.ID, apt.PatientID, apt.DoctorID, apt.Status,
				ts, apt.Notes, apt.CreatedAt, apt.UpdatedAt,
			}, nil
		},
	},
	{
		Name:    "therapist_id+appointment_date",
		Columns: []string{"id", "patient_id", "therapist_id", "status", "appointment_date", "notes", "created_at", "updated_at"},
		Values: func(apt *model.Appointment) ([]interface{}, error) {
			ts, err := CombineTimestamp(apt.Date, apt.Time)
			if err != nil {
				return nil, err
			}
			return []interface{}{
				apt.ID, apt.PatientID, apt.DoctorID, apt.Status,
				ts, apt.Notes, apt.CreatedAt, apt.UpdatedAt,
			}, nil
		},
	},
}
