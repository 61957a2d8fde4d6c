package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/careloop/portal-api/internal/model"
)

const doctorColumns = `id, doctor_id, name, email, specialization, created_at, updated_at`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (id, doctor_id, name, email, specialization, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	doctor.ID = uuid.New()
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Code,
		doctor.Name,
		doctor.Email,
		doctor.Specialization,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE id = $1`, doctorColumns)

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByCode(ctx context.Context, code string) (*model.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE doctor_id = $1`, doctorColumns)

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, code); err != nil {
		return nil, fmt.Errorf("failed to get doctor by code: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE email = $1`, doctorColumns)

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, email); err != nil {
		return nil, fmt.Errorf("failed to get doctor by email: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Doctor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE id = ANY($1)`, doctorColumns)

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors ORDER BY name ASC`, doctorColumns)

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
