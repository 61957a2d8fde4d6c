package model

// Doctor is a clinician profile. Code is the human-facing external
// identifier (e.g. "DOC001") used by the demo sign-in path; it is
// distinct from the row id.
type Doctor struct {
	Base
	Code           string `db:"doctor_id" json:"doctor_id"`
	Name           string `db:"name" json:"name"`
	Email          string `db:"email" json:"email"`
	Specialization string `db:"specialization" json:"specialization"`
}

type CreateDoctorRequest struct {
	Code           string `json:"doctor_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Specialization string `json:"specialization"`
}
