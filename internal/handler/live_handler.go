package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/validator"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // keeps a slow registry read from stalling the SSE loop
)

// LiveHandler handles the admin live exam control panel.
type LiveHandler struct {
	liveService    *service.LiveService
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(liveService *service.LiveService, attemptService *service.AttemptService, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		liveService:    liveService,
		attemptService: attemptService,
		log:            log.With().Str("component", "live_handler").Logger(),
	}
}

func listings(entries []live.Entry) []live.Listing {
	out := make([]live.Listing, len(entries))
	for i, e := range entries {
		out[i] = e.Listing()
	}
	return out
}

// ListLive godoc
// GET /api/v1/admin/live
// Lists every live exam.
func (h *LiveHandler) ListLive(c *gin.Context) {
	entries, err := h.liveService.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list live exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"live": listings(entries)})
}

// ListAvailable godoc
// GET /api/v1/admin/live/available
// Lists published exams that are not live yet.
func (h *LiveHandler) ListAvailable(c *gin.Context) {
	exams, err := h.liveService.Available(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list available exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GoLive godoc
// POST /api/v1/admin/live
// Broadcasts a published exam to its class. Body: exam_id, exempted_student_ids.
func (h *LiveHandler) GoLive(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.GoLiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entry, err := h.liveService.GoLive(c.Request.Context(), req, claims.UserID)
	if err != nil {
		status, code := classifyError(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("exam_id", req.ExamID.String()).Msg("Failed to go live")
		}
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"live": entry.Listing()})
}

// StopLive godoc
// DELETE /api/v1/admin/live/:exam_id
// Takes an exam off the air. Attempts already running continue.
func (h *LiveHandler) StopLive(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stopped, err := h.liveService.StopLive(c.Request.Context(), examID)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to stop live exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !stopped {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotLive)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam_id": examID, "stopped": true})
}

// StreamLive godoc
// GET /api/v1/admin/live/stream
// Server-Sent Events feed of registry changes, with a periodic refresh of the
// live set and the number of running attempts.
func (h *LiveHandler) StreamLive(c *gin.Context) {
	reqCtx := c.Request.Context()

	events, cancel, err := h.liveService.Subscribe(reqCtx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to subscribe to live events")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, "snapshot")

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Msg("Admin attached to live SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from live SSE")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("message", gin.H{"type": "event", "data": ev})
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendSnapshot(c, reqCtx, "refresh")

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the current live set as one SSE message.
func (h *LiveHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, kind string) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	entries, err := h.liveService.List(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read live exams for SSE")
		return
	}

	c.SSEvent("message", gin.H{
		"type": kind,
		"data": gin.H{
			"live":            listings(entries),
			"active_attempts": h.attemptService.Active(),
		},
	})
	c.Writer.Flush()
}
