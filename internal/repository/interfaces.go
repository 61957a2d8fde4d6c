package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/schema"
)

// All repository interfaces in one file.
type (
	// AppointmentRepository reads and writes appointment rows across
	// schema generations. Reads always return normalized appointments.
	AppointmentRepository interface {
		// CreateShape inserts the appointment using one schema
		// generation's columns. The recorded outbox event shares the
		// insert's transaction. Callers walk schema.WriteShapes in
		// order until a shape is accepted.
		CreateShape(ctx context.Context, shape schema.WriteShape, apt *model.Appointment, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, event *model.OutboxEvent) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByCode(ctx context.Context, code string) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		// Upsert creates or updates the patient keyed on user_id; at
		// most one patient row exists per owning user.
		Upsert(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
		ListByUserID(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error)
	}

	VideoRepository interface {
		Create(ctx context.Context, video *model.Video) error
		Get(ctx context.Context, id uuid.UUID) (*model.Video, error)
		ListByUploader(ctx context.Context, doctorID uuid.UUID) ([]*model.Video, error)
		ListByUploaders(ctx context.Context, doctorIDs []uuid.UUID) ([]*model.Video, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	OutboxRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
