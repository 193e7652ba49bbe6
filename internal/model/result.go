package model

import (
	"time"

	"github.com/google/uuid"
)

// Term is an academic term.
type Term string

const (
	TermFirst  Term = "First Term"
	TermSecond Term = "Second Term"
	TermThird  Term = "Third Term"
)

// Valid reports whether t is a known term.
func (t Term) Valid() bool {
	switch t {
	case TermFirst, TermSecond, TermThird:
		return true
	default:
		return false
	}
}

// Remark is the categorical label derived from a total score.
type Remark string

const (
	RemarkExcellent Remark = "Excellent"
	RemarkGood      Remark = "Good"
	RemarkPass      Remark = "Pass"
	RemarkPoor      Remark = "Poor"
)

// Score bounds for the two result components.
const (
	MaxCAScore   = 40
	MaxExamScore = 60
)

// Result is a student's score record for one subject in one term.
type Result struct {
	ID        uuid.UUID  `json:"id"`
	StudentID int        `json:"student_id"`
	Subject   string     `json:"subject"`
	Class     ClassLevel `json:"class"`
	Term      Term       `json:"term"`
	CA        int        `json:"ca"`
	Exam      int        `json:"exam"`
	Total     int        `json:"total"`
	Remark    Remark     `json:"remark"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UpsertResultRequest is the payload for entering or correcting a score.
type UpsertResultRequest struct {
	StudentID int        `json:"student_id" binding:"required,min=1"`
	Subject   string     `json:"subject" binding:"required,min=2,max=100"`
	Class     ClassLevel `json:"class" binding:"required,class_level"`
	Term      Term       `json:"term" binding:"required,term"`
	CA        *int       `json:"ca" binding:"required,min=0,max=40"`
	Exam      *int       `json:"exam" binding:"required,min=0,max=60"`
}

// ResultFilter narrows a result listing. Zero values mean "any".
type ResultFilter struct {
	StudentID int
	Class     ClassLevel
	Term      Term
	Subject   string
}
