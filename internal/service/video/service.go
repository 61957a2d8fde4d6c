package video

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/repository"
	apperrors "github.com/careloop/portal-api/pkg/errors"
	"github.com/careloop/portal-api/pkg/storage"
)

type Service struct {
	videos       repository.VideoRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	files        storage.FileStore
	logger       *zerolog.Logger
}

func NewService(
	videos repository.VideoRepository,
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	files storage.FileStore,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		videos:       videos,
		patients:     patients,
		appointments: appointments,
		files:        files,
		logger:       logger,
	}
}

// Create stores a learning video. Either req.VideoURL references an
// external video, or file carries an upload that is written to the blob
// store first.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreateVideoRequest, file io.Reader, filename string) (*model.Video, error) {
	video := &model.Video{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		VideoURL:    req.VideoURL,
		UploadedBy:  doctorID,
	}

	if req.VideoURL == nil {
		if file == nil {
			return nil, apperrors.BadRequest("either video_url or an uploaded file is required", nil)
		}
		key := "videos/" + uuid.New().String() + path.Ext(filename)
		url, err := s.files.Save(ctx, key, file)
		if err != nil {
			return nil, fmt.Errorf("failed to store video file: %w", err)
		}
		video.FileKey = &key
		video.FileURL = &url
	}

	if err := s.videos.Create(ctx, video); err != nil {
		// The metadata row is the source of truth; without it the
		// stored file is unreachable, so clean it up.
		if video.FileKey != nil {
			if rmErr := s.files.Delete(ctx, *video.FileKey); rmErr != nil {
				s.logger.Warn().Err(rmErr).Str("key", *video.FileKey).Msg("failed to clean up orphaned video file")
			}
		}
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	return video, nil
}

// ListForDoctor returns the doctor's own uploads, newest first.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Video, error) {
	videos, err := s.videos.ListByUploader(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor videos: %w", err)
	}
	return videos, nil
}

// ListForUser returns videos discoverable by the user: for each of the
// user's patients, the doctor of the patient's most recent appointment
// contributes their uploads. The union is deduplicated by video id and
// sorted newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Video, error) {
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

	// One batched hop: appointments come back newest-created first, so
	// the first row seen per patient is that patient's most recent.
	appointments, err := s.appointments.ListByPatients(ctx, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for user: %w", err)
	}

	latestDoctor := make(map[uuid.UUID]uuid.UUID, len(patients))
	for _, apt := range appointments {
		if _, seen := latestDoctor[apt.PatientID]; seen {
			continue
		}
		if apt.DoctorID == uuid.Nil {
			continue
		}
		latestDoctor[apt.PatientID] = apt.DoctorID
	}

	doctorIDs := make([]uuid.UUID, 0, len(latestDoctor))
	seenDoctor := make(map[uuid.UUID]bool, len(latestDoctor))
	for _, doctorID := range latestDoctor {
		if seenDoctor[doctorID] {
			continue
		}
		seenDoctor[doctorID] = true
		doctorIDs = append(doctorIDs, doctorID)
	}

	videos, err := s.videos.ListByUploaders(ctx, doctorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos for user: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(videos))
	out := make([]*model.Video, 0, len(videos))
	for _, v := range videos {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out, nil
}

// Delete removes a video in two best-effort steps: the metadata row
// first, then the backing file. A failed file removal is logged and
// swallowed — the row is already gone and the UI must not see an error.
func (s *Service) Delete(ctx context.Context, id, doctorID uuid.UUID) error {
	video, err := s.videos.Get(ctx, id)
	if err != nil {
		return apperrors.NotFound("video", err)
	}
	if video.UploadedBy != doctorID {
		return apperrors.BadRequest("video belongs to another doctor", nil)
	}

	if err := s.videos.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	if video.FileKey != nil {
		if err := s.files.Delete(ctx, *video.FileKey); err != nil {
			s.logger.Warn().Err(err).
				Str("video_id", id.String()).
				Str("key", *video.FileKey).
				Msg("video file removal failed after metadata delete")
		}
	}
	return nil
}
