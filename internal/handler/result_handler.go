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

// ResultHandler handles score entry and result listings.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// UpsertResult godoc
// PUT /api/v1/admin/results
// Enters or corrects a student's CA and Exam scores; total and remark are derived.
func (h *ResultHandler) UpsertResult(c *gin.Context) {
	var req model.UpsertResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.resultService.Upsert(c.Request.Context(), req)
	if err != nil {
		status, code := classifyError(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Int("student_id", req.StudentID).Msg("Failed to save result")
		}
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ListResults godoc
// GET /api/v1/admin/results?class=&term=&subject=&student_id=&page=&per_page=
// Lists score records.
func (h *ResultHandler) ListResults(c *gin.Context) {
	filter, fields := parseResultFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if raw := c.Query("student_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.StudentID = id
	}

	h.list(c, filter)
}

func (h *ResultHandler) list(c *gin.Context, filter model.ResultFilter) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	results, pagination, err := h.resultService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list results")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// parseResultFilter reads the class, term and subject query filters.
func parseResultFilter(c *gin.Context) (model.ResultFilter, map[string]string) {
	var f model.ResultFilter
	if raw := c.Query("class"); raw != "" {
		class, err := model.ParseClassLevel(raw)
		if err != nil {
			return f, map[string]string{"class": "class must be one of JSS 1 to SS 3"}
		}
		f.Class = class
	}
	if raw := c.Query("term"); raw != "" {
		term := model.Term(raw)
		if !term.Valid() {
			return f, map[string]string{"term": "term must be First Term, Second Term or Third Term"}
		}
		f.Term = term
	}
	f.Subject = c.Query("subject")
	return f, nil
}
