package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/scoring"
	"github.com/stemsi/exstem-portal/internal/service"
)

// classifyError maps a domain error onto an HTTP status and API error code.
func classifyError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return http.StatusNotFound, response.ErrExamNotFound
	case errors.Is(err, service.ErrExamNotDraft):
		return http.StatusConflict, response.ErrExamNotDraft
	case errors.Is(err, live.ErrExamNotPublished):
		return http.StatusConflict, response.ErrExamNotPublished
	case errors.Is(err, live.ErrAlreadyLive):
		return http.StatusConflict, response.ErrExamAlreadyLive
	case errors.Is(err, live.ErrNotLive), errors.Is(err, service.ErrExamNotLive):
		return http.StatusNotFound, response.ErrExamNotLive
	case errors.Is(err, service.ErrExempted):
		return http.StatusForbidden, response.ErrExamExempted
	case errors.Is(err, service.ErrNoActiveAttempt):
		return http.StatusNotFound, response.ErrNoActiveAttempt
	case errors.Is(err, service.ErrAttemptInProgress):
		return http.StatusConflict, response.ErrAttemptInProgress
	case errors.Is(err, attempt.ErrInvalidPhase):
		return http.StatusConflict, response.ErrInvalidPhase
	case errors.Is(err, attempt.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, attempt.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, attempt.ErrInvalidExam):
		return http.StatusUnprocessableEntity, response.ErrInvalidExam
	case errors.Is(err, model.ErrInvalidDuration),
		errors.Is(err, model.ErrOptionCount),
		errors.Is(err, model.ErrCorrectNotInOptions),
		errors.Is(err, model.ErrEmptyPrompt),
		errors.Is(err, model.ErrInvalidClass):
		return http.StatusBadRequest, response.ErrInvalidExam
	case errors.Is(err, scoring.ErrCAOutOfRange), errors.Is(err, scoring.ErrExamOutOfRange):
		return http.StatusBadRequest, response.ErrScoreOutOfRange
	case errors.Is(err, repository.ErrDuplicateRegNo):
		return http.StatusConflict, response.ErrConflict
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound, response.ErrNotFound
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failWithError writes the error response for err. Missing exams and
// attempts carry the dashboard as the safe screen to return to.
func failWithError(c *gin.Context, err error) {
	status, code := classifyError(err)
	switch code {
	case response.ErrExamNotFound, response.ErrExamNotLive, response.ErrNoActiveAttempt:
		response.FailWithRedirect(c, status, code, attempt.RouteDashboard)
	default:
		response.Fail(c, status, code)
	}
}
