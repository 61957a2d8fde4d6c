package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/model"
)

const patientColumns = `id, user_id, name, username, contact, created_at, updated_at`

func (r *patientRepository) Upsert(ctx context.Context, patient *model.Patient) error {
	query := fmt.Sprintf(`
		INSERT INTO patients (id, user_id, name, username, contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
			username = EXCLUDED.username,
			contact = EXCLUDED.contact,
			updated_at = EXCLUDED.updated_at
		RETURNING %s
	`, patientColumns)

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	if err := r.db.GetContext(ctx, patient, query,
		patient.ID,
		patient.UserID,
		patient.Name,
		patient.Username,
		patient.Contact,
		patient.CreatedAt,
		patient.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)

	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE user_id = $1`, patientColumns)

	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get patient by user: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE user_id = $1 ORDER BY created_at ASC`, patientColumns)

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list patients by user: %w", err)
	}
	return patients, nil
}
