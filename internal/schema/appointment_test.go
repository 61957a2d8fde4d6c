package schema

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/portal-api/internal/model"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestNormalizeExplicitDateTime(t *testing.T) {
	doctorID := uuid.New()
	raw := &RawAppointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  &doctorID,
		Status:    nullStr("confirmed"),
		Date:      nullStr("2025-10-30"),
		Time:      nullStr("14:00:00"),
	}

	apt := Normalize(raw)
	assert.Equal(t, "2025-10-30", apt.Date)
	assert.Equal(t, "14:00:00", apt.Time)
	assert.Equal(t, doctorID, apt.DoctorID)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)
}

func TestNormalizeCombinedTimestamp(t *testing.T) {
	doctorID := uuid.New()
	ts := time.Date(2025, 10, 30, 9, 5, 0, 0, time.Local)
	raw := &RawAppointment{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		DoctorID:        &doctorID,
		Status:          nullStr("pending"),
		AppointmentDate: sql.NullTime{Time: ts, Valid: true},
	}

	apt := Normalize(raw)
	assert.Equal(t, "2025-10-30", apt.Date)
	assert.Equal(t, "09:05:00", apt.Time, "wall-clock time must be zero-padded")
}

func TestNormalizePrefersExplicitFields(t *testing.T) {
	// When both representations are present the explicit fields win.
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	raw := &RawAppointment{
		ID:              uuid.New(),
		Date:            nullStr("2025-12-24"),
		Time:            nullStr("08:30:00"),
		AppointmentDate: sql.NullTime{Time: ts, Valid: true},
	}

	apt := Normalize(raw)
	assert.Equal(t, "2025-12-24", apt.Date)
	assert.Equal(t, "08:30:00", apt.Time)
}

func TestNormalizeTherapistAlias(t *testing.T) {
	therapistID := uuid.New()
	raw := &RawAppointment{
		ID:          uuid.New(),
		TherapistID: &therapistID,
		Date:        nullStr("2025-06-01"),
		Time:        nullStr("10:00:00"),
	}

	apt := Normalize(raw)
	assert.Equal(t, therapistID, apt.DoctorID, "therapist_id aliases doctor_id")
}

func TestNormalizeDoctorIDWinsOverTherapist(t *testing.T) {
	doctorID := uuid.New()
	therapistID := uuid.New()
	raw := &RawAppointment{
		ID:          uuid.New(),
		DoctorID:    &doctorID,
		TherapistID: &therapistID,
	}

	apt := Normalize(raw)
	assert.Equal(t, doctorID, apt.DoctorID)
}

func TestNormalizeMissingTemporalFields(t *testing.T) {
	raw := &RawAppointment{ID: uuid.New(), PatientID: uuid.New()}

	apt := Normalize(raw)
	assert.Empty(t, apt.Date)
	assert.Empty(t, apt.Time)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status, "missing status defaults to pending")
}

func TestNormalizeShortClockPadded(t *testing.T) {
	raw := &RawAppointment{
		ID:   uuid.New(),
		Date: nullStr("2025-03-03"),
		Time: nullStr("09:30"),
	}

	apt := Normalize(raw)
	assert.Equal(t, "09:30:00", apt.Time)
}

func TestNormalizeCanonicalFormats(t *testing.T) {
	doctorID := uuid.New()
	rows := []*RawAppointment{
		{ID: uuid.New(), DoctorID: &doctorID, Date: nullStr("2025-10-30"), Time: nullStr("14:00:00")},
		{ID: uuid.New(), DoctorID: &doctorID, AppointmentDate: sql.NullTime{Time: time.Now(), Valid: true}},
		{ID: uuid.New(), TherapistID: &doctorID, AppointmentDate: sql.NullTime{Time: time.Date(2023, 2, 3, 4, 5, 6, 0, time.Local), Valid: true}},
	}

	for _, raw := range rows {
		apt := Normalize(raw)
		assert.Regexp(t, datePattern, apt.Date)
		assert.Regexp(t, timePattern, apt.Time)
	}
}

func TestCombineTimestamp(t *testing.T) {
	ts, err := CombineTimestamp("2025-10-30", "14:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 30, 14, 0, 0, 0, time.Local), ts)

	_, err = CombineTimestamp("", "")
	assert.Error(t, err)
}

func TestWriteShapesOrderedNewestFirst(t *testing.T) {
	require.Len(t, WriteShapes, 3)
	assert.Equal(t, "doctor_id+date/time", WriteShapes[0].Name)
	assert.Equal(t, "doctor_id+appointment_date", WriteShapes[1].Name)
	assert.Equal(t, "therapist_id+appointment_date", WriteShapes[2].Name)
}

func TestWriteShapeValuesMatchColumns(t *testing.T) {
	apt := &model.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Status:    model.AppointmentStatusPending,
		Date:      "2025-10-30",
		Time:      "14:00:00",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, shape := range WriteShapes {
		values, err := shape.Values(apt)
		require.NoError(t, err, shape.Name)
		assert.Len(t, values, len(shape.Columns), shape.Name)
	}
}
