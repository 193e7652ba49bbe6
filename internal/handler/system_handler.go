package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
)

const pingTimeout = 2 * time.Second

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports process health and portal load.
type SystemHandler struct {
	db             Pinger
	rdb            *redis.Client
	liveService    *service.LiveService
	attemptService *service.AttemptService
	startTime      time.Time
	log            zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db Pinger, rdb *redis.Client, liveService *service.LiveService, attemptService *service.AttemptService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:             db,
		rdb:            rdb,
		liveService:    liveService,
		attemptService: attemptService,
		startTime:      time.Now(),
		log:            log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Pings Postgres and Redis. Answers 503 when either is down.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	healthy := true
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres health check failed")
		checks["postgres"] = "down"
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		checks["redis"] = "down"
		healthy = false
	}

	status, state := http.StatusOK, "ok"
	if !healthy {
		status, state = http.StatusServiceUnavailable, "degraded"
	}
	response.Success(c, status, gin.H{"status": state, "checks": checks})
}

type systemStatus struct {
	Uptime          string `json:"uptime"`
	GoVersion       string `json:"go_version"`
	NumCPU          int    `json:"num_cpu"`
	Goroutines      int    `json:"goroutines"`
	HeapAlloc       uint64 `json:"heap_alloc"`
	HeapSys         uint64 `json:"heap_sys"`
	NumGC           uint32 `json:"num_gc"`
	ActiveAttempts  int    `json:"active_attempts"`
	LiveExams       int    `json:"live_exams"`
	SubmissionQueue int64  `json:"submission_queue"`
}

// Status godoc
// GET /api/v1/admin/system
// Runtime statistics plus active attempts, live exams and queued submissions.
func (h *SystemHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := systemStatus{
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAlloc:      mem.HeapAlloc,
		HeapSys:        mem.HeapSys,
		NumGC:          mem.NumGC,
		ActiveAttempts: h.attemptService.Active(),
	}

	entries, err := h.liveService.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list live exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	st.LiveExams = len(entries)

	queued, err := h.rdb.LLen(ctx, config.WorkerKey.PersistSubmissionsQueue).Result()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read submission queue length")
		queued = -1
	}
	st.SubmissionQueue = queued

	response.Success(c, http.StatusOK, st)
}
