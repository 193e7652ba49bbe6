package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
)

// StudentPortalHandler handles student-facing endpoints (dashboard, attempts, grades).
type StudentPortalHandler struct {
	liveService    *service.LiveService
	attemptService *service.AttemptService
	results        *ResultHandler
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	liveService *service.LiveService,
	attemptService *service.AttemptService,
	results *ResultHandler,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		liveService:    liveService,
		attemptService: attemptService,
		results:        results,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// LiveExamView is a live exam as shown on the student dashboard.
type LiveExamView struct {
	ExamID          uuid.UUID `json:"exam_id"`
	Subject         string    `json:"subject"`
	DurationMinutes int       `json:"duration_minutes"`
	ObjectiveCount  int       `json:"objective_count"`
	TheoryCount     int       `json:"theory_count"`
	Exempted        bool      `json:"exempted"`
	InProgress      bool      `json:"in_progress"`
}

// ListLiveExams godoc
// GET /api/v1/student/live-exams
// Lists the exams currently live for the student's class.
func (h *StudentPortalHandler) ListLiveExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	entries, err := h.liveService.ForClass(c.Request.Context(), claims.Class)
	if err != nil {
		h.log.Error().Err(err).Str("class", string(claims.Class)).Msg("Failed to list live exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	var running uuid.UUID
	if a, err := h.attemptService.Current(claims.UserID); err == nil {
		running = a.ExamID()
	}

	exams := make([]LiveExamView, len(entries))
	for i, e := range entries {
		exams[i] = LiveExamView{
			ExamID:          e.Exam.ID,
			Subject:         e.Exam.Subject,
			DurationMinutes: e.Exam.DurationMinutes,
			ObjectiveCount:  len(e.Exam.ObjectiveQuestions),
			TheoryCount:     len(e.Exam.TheoryQuestions),
			Exempted:        e.IsExempt(claims.UserID),
			InProgress:      e.Exam.ID == running,
		}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams, "class": claims.Class})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempt
// Starts an attempt at a live exam, or returns the one already running.
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.FailWithRedirect(c, http.StatusNotFound, response.ErrExamNotFound, attempt.RouteDashboard)
		return
	}

	a, resumed, err := h.attemptService.Start(c.Request.Context(), service.StudentRef{ID: claims.UserID, Class: claims.Class}, examID)
	if err != nil {
		if status, _ := classifyError(err); status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("exam_id", examID.String()).Int("student_id", claims.UserID).Msg("Failed to start attempt")
		}
		failWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"attempt": a.Snapshot(), "resumed": resumed})
}

// GetAttempt godoc
// GET /api/v1/student/attempt
// Returns the current attempt snapshot. Covers page reloads.
func (h *StudentPortalHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	a, err := h.attemptService.Current(claims.UserID)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": a.Snapshot()})
}

// ListResults godoc
// GET /api/v1/student/results?term=&subject=
// Lists the student's own score records.
func (h *StudentPortalHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	filter, fields := parseResultFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	filter.StudentID = claims.UserID

	h.results.list(c, filter)
}
