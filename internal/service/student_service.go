package service

import (
	"context"

	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/response"
)

// StudentService handles student business logic.
type StudentService struct {
	studentRepo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository) *StudentService {
	return &StudentService{studentRepo: studentRepo}
}

// GetByRegNo retrieves a student by their registration number.
func (s *StudentService) GetByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	return s.studentRepo.GetByRegNo(ctx, regNo)
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// ListByClass retrieves a class roster with pagination.
func (s *StudentService) ListByClass(ctx context.Context, class model.ClassLevel, page, perPage int) ([]model.Student, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)

	students, total, err := s.studentRepo.ListByClass(ctx, class, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, response.NewPagination(page, perPage, total), nil
}

// Create enrolls a student with an already hashed password.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest, passwordHash string) (*model.Student, error) {
	student := &model.Student{
		RegNo:        req.RegNo,
		Name:         req.Name,
		Class:        req.Class,
		PasswordHash: passwordHash,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}
