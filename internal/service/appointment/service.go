package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careloop/portal-api/internal/email"
	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/repository"
	"github.com/careloop/portal-api/internal/schema"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/messaging"
)

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
	broker   messaging.Broker
	notifier email.Service
	logger   *zerolog.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	broker messaging.Broker,
	notifier email.Service,
	logger *zerolog.Logger,
) *Service {
	if notifier == nil {
		notifier = email.NoopService{}
	}
	return &Service{
		repo:     repo,
		patients: patients,
		doctors:  doctors,
		broker:   broker,
		notifier: notifier,
		logger:   logger,
	}
}

// Create books an appointment. The insert walks the known schema shapes
// newest-first; only if every shape rejects does the error propagate.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, apperrors.BadRequest("invalid date, want YYYY-MM-DD", err)
	}
	if _, err := time.Parse("15:04:05", req.Time); err != nil {
		return nil, apperrors.BadRequest("invalid time, want HH:MM:SS", err)
	}

	now := time.Now()
	apt := &model.Appointment{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Status:    model.AppointmentStatusPending,
		Date:      req.Date,
		Time:      req.Time,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	event, err := newEvent(model.EventAppointmentCreated, apt)
	if err != nil {
		return nil, err
	}

	// Progressive schema fallback: try the newest shape first, fall
	// back generation by generation. Against any one deployed store the
	// same branch resolves every time; the chain guards against
	// migration drift.
	var lastErr error
	for _, shape := range schema.WriteShapes {
		if err := s.repo.CreateShape(ctx, shape, apt, event); err != nil {
			lastErr = err
			s.logger.Debug().Err(err).Str("shape", shape.Name).Msg("schema shape rejected insert")
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to create appointment against any schema shape: %w", lastErr)
	}

	s.notifyDoctor(ctx, apt, s.notifier.SendAppointmentCreated)
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}
	return apt, nil
}

// ListForDoctor returns the doctor's appointments ordered by
// appointment time ascending, normalized.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

// ListForPatient returns the patient's appointments ordered by
// appointment time ascending, normalized.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

// ListForUser walks user → patients → appointments → doctors. Each hop
// is one batched query; the merged result is deduplicated and sorted by
// creation time, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.AppointmentWithDoctor, error) {
	patients, err := s.patients.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients for user: %w", err)
	}
	if len(patients) == 0 {
		return nil, nil
	}

	patientIDs := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		patientIDs = append(patientIDs, p.ID)
	}

	appointments, err := s.repo.ListByPatients(ctx, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for user: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(appointments))
	deduped := make([]*model.Appointment, 0, len(appointments))
	doctorIDs := make([]uuid.UUID, 0, len(appointments))
	seenDoctor := make(map[uuid.UUID]bool)
	for _, apt := range appointments {
		if seen[apt.ID] {
			continue
		}
		seen[apt.ID] = true
		deduped = append(deduped, apt)
		if apt.DoctorID != uuid.Nil && !seenDoctor[apt.DoctorID] {
			seenDoctor[apt.DoctorID] = true
			doctorIDs = append(doctorIDs, apt.DoctorID)
		}
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].CreatedAt.After(deduped[j].CreatedAt)
	})

	doctors, err := s.doctors.GetByIDs(ctx, doctorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctors for appointments: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Doctor, len(doctors))
	for _, d := range doctors {
		byID[d.ID] = d
	}

	result := make([]*model.AppointmentWithDoctor, 0, len(deduped))
	for _, apt := range deduped {
		result = append(result, &model.AppointmentWithDoctor{
			Appointment: *apt,
			Doctor:      byID[apt.DoctorID],
		})
	}
	return result, nil
}

// UpdateStatus moves an appointment through the status state machine.
// Illegal transitions are rejected here, not left to UI convention.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !model.ValidStatus(status) {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown status %q", status), nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}

	if !model.CanTransition(apt.Status, status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot transition appointment from %s to %s", apt.Status, status), nil)
	}

	apt.Status = status
	apt.UpdatedAt = time.Now()

	event, err := newEvent(model.EventAppointmentStatusChanged, apt)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status, event); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	s.notifyDoctor(ctx, apt, s.notifier.SendAppointmentStatusChanged)
	return apt, nil
}

// SubscribeDoctor delivers each of the doctor's appointment changes to
// handler until ctx is cancelled. Delivery guarantees are the broker's;
// reconnection is the broker client's concern.
func (s *Service) SubscribeDoctor(ctx context.Context, doctorID uuid.UUID, handler func(*model.AppointmentEvent)) error {
	msgs, err := s.broker.Subscribe(ctx, model.DoctorAppointmentsChannel(doctorID))
	if err != nil {
		return fmt.Errorf("failed to subscribe to doctor appointments: %w", err)
	}

	go func() {
		for msg := range msgs {
			var event model.AppointmentEvent
			if err := json.Unmarshal(msg, &event); err != nil {
				s.logger.Warn().Err(err).Msg("dropping malformed appointment event")
				continue
			}
			handler(&event)
		}
	}()

	return nil
}

func newEvent(eventType string, apt *model.Appointment) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(&model.AppointmentEvent{
		Type:        eventType,
		Appointment: apt,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal appointment event: %w", err)
	}

	return &model.OutboxEvent{
		EventType: eventType,
		Channel:   model.DoctorAppointmentsChannel(apt.DoctorID),
		Payload:   payload,
	}, nil
}

// notifyDoctor emails the appointment's doctor, best-effort.
func (s *Service) notifyDoctor(ctx context.Context, apt *model.Appointment, send func(context.Context, string, *model.Appointment) error) {
	if apt.DoctorID == uuid.Nil {
		return
	}
	doctor, err := s.doctors.Get(ctx, apt.DoctorID)
	if err != nil || doctor.Email == "" {
		return
	}
	if err := send(ctx, doctor.Email, apt); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", apt.ID.String()).
			Msg("appointment notification failed")
	}
}
