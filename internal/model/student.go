package model

import "time"

// Student represents a student user.
type Student struct {
	ID           int        `json:"id"`
	RegNo        string     `json:"reg_no"`
	Name         string     `json:"name"`
	Class        ClassLevel `json:"class"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	RegNo    string `json:"reg_no" binding:"required,min=3,max=20"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// CreateStudentRequest is the payload for enrolling a student.
type CreateStudentRequest struct {
	RegNo    string     `json:"reg_no" binding:"required,min=3,max=20"`
	Name     string     `json:"name" binding:"required,min=2,max=255"`
	Class    ClassLevel `json:"class" binding:"required,class_level"`
	Password string     `json:"password" binding:"required,min=4,max=128"`
}
