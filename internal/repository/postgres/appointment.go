package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/schema"
)

// rawColumns selects every generation's columns; absent values come
// back NULL and normalization sorts them out.
const rawColumns = `id, patient_id, doctor_id, therapist_id, status, "date", "time", appointment_date, notes, created_at, updated_at`

// startOrder sorts heterogeneous rows by appointment time regardless of
// which temporal representation a row carries.
const startOrder = `COALESCE(appointment_date, to_timestamp("date" || ' ' || "time", 'YYYY-MM-DD HH24:MI:SS'))`

// CreateShape runs one shape's insert and the outbox record in a single
// transaction. A rejected insert rolls back cleanly so the caller's
// next shape starts fresh.
func (r *appointmentRepository) CreateShape(ctx context.Context, shape schema.WriteShape, apt *model.Appointment, event *model.OutboxEvent) error {
	values, err := shape.Values(apt)
	if err != nil {
		return err
	}
	if err := r.insertShape(ctx, shape.Columns, values, event); err != nil {
		return fmt.Errorf("shape %s: %w", shape.Name, err)
	}
	return nil
}

func (r *appointmentRepository) insertShape(ctx context.Context, columns []string, values []interface{}, event *model.OutboxEvent) error {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}

	query := fmt.Sprintf(
		"INSERT INTO appointments (%s) VALUES (%s)",
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, values...); err != nil {
		return err
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to record outbox event: %w", err)
		}
	}

	return tx.Commit()
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, rawColumns)

	var raw schema.RawAppointment
	if err := r.db.GetContext(ctx, &raw, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return schema.Normalize(&raw), nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, event *model.OutboxEvent) error {
	query := `UPDATE appointments SET status = $1, updated_at = now() WHERE id = $2`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to record outbox event: %w", err)
		}
	}

	return tx.Commit()
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE doctor_id = $1 OR therapist_id = $1
		ORDER BY %s ASC NULLS LAST
	`, rawColumns, startOrder)

	return r.selectNormalized(ctx, query, doctorID)
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE patient_id = $1
		ORDER BY %s ASC NULLS LAST
	`, rawColumns, startOrder)

	return r.selectNormalized(ctx, query, patientID)
}

func (r *appointmentRepository) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE patient_id = ANY($1)
		ORDER BY created_at DESC
	`, rawColumns)

	return r.selectNormalized(ctx, query, pq.Array(patientIDs))
}

func (r *appointmentRepository) selectNormalized(ctx context.Context, query string, args ...interface{}) ([]*model.Appointment, error) {
	var raws []*schema.RawAppointment
	if err := r.db.SelectContext(ctx, &raws, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appointments := make([]*model.Appointment, 0, len(raws))
	for _, raw := range raws {
		appointments = append(appointments, schema.Normalize(raw))
	}
	return appointments, nil
}
