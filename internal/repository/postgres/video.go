package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/careloop/portal-api/internal/model"
)

const videoColumns = `id, title, description, category, video_url, file_url, file_key, uploaded_by, created_at, updated_at`

func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	query := `
		INSERT INTO learning_videos (id, title, description, category, video_url, file_url, file_key, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	video.CreatedAt = time.Now()
	video.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		video.ID,
		video.Title,
		video.Description,
		video.Category,
		video.VideoURL,
		video.FileURL,
		video.FileKey,
		video.UploadedBy,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *videoRepository) Get(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	query := fmt.Sprintf(`SELECT %s FROM learning_videos WHERE id = $1`, videoColumns)

	var video model.Video
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (r *videoRepository) ListByUploader(ctx context.Context, doctorID uuid.UUID) ([]*model.Video, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM learning_videos
		WHERE uploaded_by = $1
		ORDER BY created_at DESC
	`, videoColumns)

	var videos []*model.Video
	if err := r.db.SelectContext(ctx, &videos, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

func (r *videoRepository) ListByUploaders(ctx context.Context, doctorIDs []uuid.UUID) ([]*model.Video, error) {
	if len(doctorIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM learning_videos
		WHERE uploaded_by = ANY($1)
		ORDER BY created_at DESC
	`, videoColumns)

	var videos []*model.Video
	if err := r.db.SelectContext(ctx, &videos, query, pq.Array(doctorIDs)); err != nil {
		return nil, fmt.Errorf("failed to list videos by uploaders: %w", err)
	}
	return videos, nil
}

func (r *videoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM learning_videos WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
