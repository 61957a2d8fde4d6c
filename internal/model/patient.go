package model

import "github.com/google/uuid"

// Patient is a patient profile owned by an authenticated user. At most
// one patient row exists per owning user; writes upsert on user_id.
type Patient struct {
	Base
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Name     string    `db:"name" json:"name"`
	Username *string   `db:"username" json:"username,omitempty"`
	Contact  *string   `db:"contact" json:"contact,omitempty"`
}

type UpsertPatientRequest struct {
	Name     string  `json:"name" binding:"required"`
	Username *string `json:"username"`
	Contact  *string `json:"contact"`
}
