package model

import "github.com/google/uuid"

// Video is doctor-uploaded learning content. Exactly one of VideoURL
// (external link) or FileURL (uploaded file) is expected to be set;
// FileKey addresses the uploaded file in the blob store and is empty
// for external links.
type Video struct {
	Base
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	VideoURL    *string   `db:"video_url" json:"video_url,omitempty"`
	FileURL     *string   `db:"file_url" json:"file_url,omitempty"`
	FileKey     *string   `db:"file_key" json:"-"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
}

type CreateVideoRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description string  `json:"description" binding:"max=2000"`
	Category    string  `json:"category" binding:"required"`
	VideoURL    *string `json:"video_url" binding:"omitempty,url"`
}
