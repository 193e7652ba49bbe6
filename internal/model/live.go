package model

import "github.com/google/uuid"

// GoLiveRequest is the payload an admin sends to broadcast an exam to its class.
// ExemptedStudentIDs lists the students unchecked in the go-live dialog.
type GoLiveRequest struct {
	ExamID             uuid.UUID `json:"exam_id" binding:"required"`
	ExemptedStudentIDs []int     `json:"exempted_student_ids" binding:"omitempty,dive,min=1"`
}
