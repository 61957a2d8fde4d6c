package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/repository"
)

type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

// UpsertProfile creates or updates the session user's patient profile.
// The upsert is keyed on user_id, so a user never ends up with more
// than one patient row.
func (s *Service) UpsertProfile(ctx context.Context, userID uuid.UUID, req *model.UpsertPatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		UserID:   userID,
		Name:     req.Name,
		Username: req.Username,
		Contact:  req.Contact,
	}

	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to upsert patient profile: %w", err)
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}
