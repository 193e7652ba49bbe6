package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// StudentManagementHandler handles admin-facing student management: class
// rosters for the go-live dialog, enrollment and session reset.
type StudentManagementHandler struct {
	studentService *service.StudentService
	authService    *service.AuthService
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(
	studentService *service.StudentService,
	authService *service.AuthService,
	attemptService *service.AttemptService,
	log zerolog.Logger,
) *StudentManagementHandler {
	return &StudentManagementHandler{
		studentService: studentService,
		authService:    authService,
		attemptService: attemptService,
		log:            log.With().Str("component", "student_management_handler").Logger(),
	}
}

// ListStudents godoc
// GET /api/v1/admin/students?class=&page=&per_page=
// Lists the roster of one class.
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	class, err := model.ParseClassLevel(c.Query("class"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"class": "class must be one of JSS 1 to SS 3"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "100"))

	students, pagination, err := h.studentService.ListByClass(c.Request.Context(), class, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Str("class", string(class)).Msg("Failed to list students")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// CreateStudent godoc
// POST /api/v1/admin/students
// Enrolls a new student.
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), req, hash)
	if err != nil {
		status, code := classifyError(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("reg_no", req.RegNo).Msg("Failed to create student")
		}
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": studentJSON(student)})
}

// ResetStudentSession godoc
// POST /api/v1/admin/students/:id/reset-session
// Ends a student's session and any running attempt so they can log in again.
func (h *StudentManagementHandler) ResetStudentSession(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	abandoned := h.attemptService.Abandon(studentID)

	if err := h.authService.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		h.log.Error().Err(err).Int("student_id", studentID).Msg("Failed to reset session")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().Int("student_id", studentID).Bool("attempt_abandoned", abandoned).Msg("Student session reset")
	response.Success(c, http.StatusOK, gin.H{"student_id": studentID, "attempt_abandoned": abandoned})
}
