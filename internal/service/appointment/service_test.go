package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/schema"
	apperrors "github.com/careloop/portal-api/pkg/errors"
)

// fakeAppointmentRepo keeps appointments in memory and can be told to
// reject inserts for the first N schema shapes, simulating an older
// deployed store.
type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	rejectShapes int
	attempts     []string
	events       []*model.OutboxEvent
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentRepo) CreateShape(_ context.Context, shape schema.WriteShape, apt *model.Appointment, event *model.OutboxEvent) error {
	f.attempts = append(f.attempts, shape.Name)
	if len(f.attempts) <= f.rejectShapes {
		return fmt.Errorf("shape %s: column does not exist", shape.Name)
	}
	copied := *apt
	f.appointments[apt.ID] = &copied
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.appointments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get appointment: no rows")
	}
	copied := *apt
	return &copied, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus, event *model.OutboxEvent) error {
	apt, ok := f.appointments[id]
	if !ok {
		return fmt.Errorf("failed to update appointment status: no rows")
	}
	apt.Status = status
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAppointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range f.appointments {
		if apt.DoctorID == doctorID {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range f.appointments {
		if apt.PatientID == patientID {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListByPatients(_ context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, id := range patientIDs {
		apts, _ := f.ListByPatient(context.Background(), id)
		out = append(out, apts...)
	}
	return out, nil
}

type fakePatientRepo struct {
	byUser map[uuid.UUID][]*model.Patient
}

func (f *fakePatientRepo) Upsert(context.Context, *model.Patient) error { return nil }

func (f *fakePatientRepo) Get(context.Context, uuid.UUID) (*model.Patient, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakePatientRepo) GetByUserID(context.Context, uuid.UUID) (*model.Patient, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakePatientRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	return f.byUser[userID], nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*model.Doctor
}

func (f *fakeDoctorRepo) Create(context.Context, *model.Doctor) error { return nil }

func (f *fakeDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("failed to get doctor: no rows")
}

func (f *fakeDoctorRepo) GetByCode(context.Context, string) (*model.Doctor, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeDoctorRepo) GetByEmail(context.Context, string) (*model.Doctor, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeDoctorRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*model.Doctor, error) {
	var out []*model.Doctor
	for _, id := range ids {
		if d, ok := f.doctors[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDoctorRepo) List(context.Context) ([]*model.Doctor, error) { return nil, nil }

type fakeBroker struct {
	published map[string][][]byte
	subs      map[string]chan []byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		published: make(map[string][][]byte),
		subs:      make(map[string]chan []byte),
	}
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	f.published[channel] = append(f.published[channel], payload)
	if ch, ok := f.subs[channel]; ok {
		ch <- payload
	}
	return nil
}

func (f *fakeBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 10)
	f.subs[channel] = ch
	return ch, nil
}

func (f *fakeBroker) Close() error { return nil }

func newTestService(repo *fakeAppointmentRepo, patients *fakePatientRepo, doctors *fakeDoctorRepo, broker *fakeBroker) *Service {
	if patients == nil {
		patients = &fakePatientRepo{byUser: map[uuid.UUID][]*model.Patient{}}
	}
	if doctors == nil {
		doctors = &fakeDoctorRepo{doctors: map[uuid.UUID]*model.Doctor{}}
	}
	if broker == nil {
		broker = newFakeBroker()
	}
	logger := zerolog.Nop()
	return NewService(repo, patients, doctors, broker, nil, &logger)
}

func createReq() *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      "2025-10-30",
		Time:      "14:00:00",
	}
}

func TestCreateDefaultsToPending(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, nil, nil, nil)

	apt, err := svc.Create(context.Background(), createReq())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, "2025-10-30", apt.Date)
	assert.Equal(t, "14:00:00", apt.Time)

	// First shape accepted, no fallback needed.
	assert.Equal(t, []string{"doctor_id+date/time"}, repo.attempts)
}

func TestCreateFallsBackThroughShapes(t *testing.T) {
	repo := newFakeAppointmentRepo()
	repo.rejectShapes = 2
	svc := newTestService(repo, nil, nil, nil)

	apt, err := svc.Create(context.Background(), createReq())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, []string{
		"doctor_id+date/time",
		"doctor_id+appointment_date",
		"therapist_id+appointment_date",
	}, repo.attempts)
}

func TestCreateFailsWhenAllShapesReject(t *testing.T) {
	repo := newFakeAppointmentRepo()
	repo.rejectShapes = len(schema.WriteShapes)
	svc := newTestService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), createReq())
	assert.Error(t, err)
	assert.Len(t, repo.attempts, len(schema.WriteShapes))
}

func TestCreateRejectsMalformedDate(t *testing.T) {
	svc := newTestService(newFakeAppointmentRepo(), nil, nil, nil)

	req := createReq()
	req.Date = "30/10/2025"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	tests := []struct {
		name string
		from model.AppointmentStatus
		to   model.AppointmentStatus
		ok   bool
	}{
		{"pending to confirmed", model.AppointmentStatusPending, model.AppointmentStatusConfirmed, true},
		{"pending to cancelled", model.AppointmentStatusPending, model.AppointmentStatusCancelled, true},
		{"pending to completed", model.AppointmentStatusPending, model.AppointmentStatusCompleted, false},
		{"confirmed to completed", model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, true},
		{"confirmed to cancelled", model.AppointmentStatusConfirmed, model.AppointmentStatusCancelled, true},
		{"completed is terminal", model.AppointmentStatusCompleted, model.AppointmentStatusCancelled, false},
		{"cancelled is terminal", model.AppointmentStatusCancelled, model.AppointmentStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeAppointmentRepo()
			svc := newTestService(repo, nil, nil, nil)

			apt, err := svc.Create(context.Background(), createReq())
			require.NoError(t, err)
			repo.appointments[apt.ID].Status = tt.from

			updated, err := svc.UpdateStatus(context.Background(), apt.ID, tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
				return
			}

			require.Error(t, err)
			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrConflict, appErr.Code)
		})
	}
}

func TestUpdateStatusReadAfterWrite(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, nil, nil, nil)

	apt, err := svc.Create(context.Background(), createReq())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), apt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)

	listed, err := svc.ListForDoctor(context.Background(), apt.DoctorID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, model.AppointmentStatusConfirmed, listed[0].Status)
}

func TestListForUserDedupesAndSortsNewestFirst(t *testing.T) {
	repo := newFakeAppointmentRepo()

	userID := uuid.New()
	patientA := &model.Patient{UserID: userID}
	patientA.ID = uuid.New()
	patientB := &model.Patient{UserID: userID}
	patientB.ID = uuid.New()
	patients := &fakePatientRepo{byUser: map[uuid.UUID][]*model.Patient{
		userID: {patientA, patientB},
	}}

	docA := &model.Doctor{Name: "Dr. Adams"}
	docA.ID = uuid.New()
	docB := &model.Doctor{Name: "Dr. Brooks"}
	docB.ID = uuid.New()
	doctors := &fakeDoctorRepo{doctors: map[uuid.UUID]*model.Doctor{
		docA.ID: docA,
		docB.ID: docB,
	}}

	now := time.Now()
	older := &model.Appointment{
		ID: uuid.New(), PatientID: patientA.ID, DoctorID: docA.ID,
		Status: model.AppointmentStatusPending, CreatedAt: now.Add(-time.Hour),
	}
	newer := &model.Appointment{
		ID: uuid.New(), PatientID: patientB.ID, DoctorID: docB.ID,
		Status: model.AppointmentStatusPending, CreatedAt: now,
	}
	repo.appointments[older.ID] = older
	repo.appointments[newer.ID] = newer

	svc := newTestService(repo, patients, doctors, nil)

	result, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, newer.ID, result[0].ID, "newest first")
	assert.Equal(t, "Dr. Brooks", result[0].Doctor.Name)
	assert.Equal(t, "Dr. Adams", result[1].Doctor.Name)
}

func TestSubscribeDoctorDeliversNormalizedEvents(t *testing.T) {
	repo := newFakeAppointmentRepo()
	broker := newFakeBroker()
	svc := newTestService(repo, nil, nil, broker)

	doctorID := uuid.New()
	received := make(chan *model.AppointmentEvent, 1)
	err := svc.SubscribeDoctor(context.Background(), doctorID, func(e *model.AppointmentEvent) {
		received <- e
	})
	require.NoError(t, err)

	apt := &model.Appointment{
		ID: uuid.New(), DoctorID: doctorID,
		Status: model.AppointmentStatusPending,
		Date:   "2025-10-30", Time: "14:00:00",
	}
	event := &model.AppointmentEvent{
		Type:        model.EventAppointmentCreated,
		Appointment: apt,
		OccurredAt:  time.Now(),
	}
	require.NoError(t, broker.Publish(context.Background(), model.DoctorAppointmentsChannel(doctorID), event))

	select {
	case got := <-received:
		assert.Equal(t, model.EventAppointmentCreated, got.Type)
		assert.Equal(t, apt.ID, got.Appointment.ID)
		assert.Equal(t, "2025-10-30", got.Appointment.Date)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for appointment event")
	}
}

func TestCreateRecordsOutboxEvent(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(repo, nil, nil, nil)

	apt, err := svc.Create(context.Background(), createReq())
	require.NoError(t, err)

	require.Len(t, repo.events, 1)
	event := repo.events[0]
	assert.Equal(t, model.EventAppointmentCreated, event.EventType)
	assert.Equal(t, model.DoctorAppointmentsChannel(apt.DoctorID), event.Channel)

	var payload model.AppointmentEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, apt.ID, payload.Appointment.ID)
}
