package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/countdown"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/notify"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	ws "github.com/stemsi/exstem-portal/internal/websocket"
)

// writerBuffer bounds the messages queued for one connection.
const writerBuffer = 64

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the student WebSocket streams.
type WSHandler struct {
	attemptService *service.AttemptService
	liveService    *service.LiveService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, liveService *service.LiveService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		liveService:    liveService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// attemptSession binds one connection to one attempt.
type attemptSession struct {
	a        *attempt.Attempt
	out      *ws.Writer
	notifier notify.Notifier
	class    model.ClassLevel
	log      zerolog.Logger
}

// AttemptStream godoc
// WS /ws/v1/student/attempt/stream
// Drives the student's running attempt: answers, navigation, phase changes,
// and the countdown pushed every second.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	a, err := h.attemptService.Current(claims.UserID)
	if err != nil {
		ws.WriteError(conn, string(response.ErrNoActiveAttempt), response.GetMessage(response.ErrNoActiveAttempt))
		ws.WriteTyped(conn, ws.NavigateResponse{Event: ws.EventNavigate, Route: attempt.RouteDashboard})
		return
	}

	s := &attemptSession{
		a:     a,
		out:   ws.NewWriter(conn, writerBuffer),
		class: claims.Class,
		log: h.log.With().
			Int("student_id", claims.UserID).
			Str("exam_id", a.ExamID().String()).
			Logger(),
	}
	go s.out.Run()
	defer s.out.Close()

	s.notifier = notify.Func(func(title, message string, kind notify.Kind) {
		s.out.Send(ws.NotificationResponse{Event: ws.EventNotification, Title: title, Message: message, Kind: kind})
	})
	detach := a.Attach(attempt.Hooks{
		Notifier: s.notifier,
		Navigator: attempt.NavigatorFunc(func(route string) {
			s.out.Send(ws.NavigateResponse{Event: ws.EventNavigate, Route: route})
		}),
		OnPhase: func(attempt.Phase) { s.sendState() },
		OnTick: func(secondsLeft int) {
			s.out.Send(ws.TickResponse{
				Event:         ws.EventTick,
				SecondsLeft:   secondsLeft,
				TimeRemaining: countdown.Format(secondsLeft),
				Progress:      a.Progress(secondsLeft),
			})
		},
	})
	defer detach()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	h.forwardLiveChanges(ctx, s.out, claims.Class, s.log)

	s.log.Info().Msg("Student attached to attempt stream")
	s.sendState()

	for {
		data, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
			continue
		}
		s.dispatch(env.Action, data)
	}
}

func (s *attemptSession) dispatch(action ws.Action, data []byte) {
	switch action {
	case ws.ActionSelect:
		var req ws.SelectRequest
		qid, ok := s.decodeQuestion(data, &req, func() string { return req.QID })
		if !ok {
			return
		}
		s.reply(s.a.SelectObjectiveAnswer(qid, req.Option))

	case ws.ActionNext:
		s.reply(s.a.NavigateNext())

	case ws.ActionBack:
		s.reply(s.a.NavigateBack())

	case ws.ActionSubmitObjectives:
		// A repeat or a race with expiry is a no-op; the phase hook already
		// pushed the checkpoint state.
		if !s.a.SubmitObjectives() {
			s.sendState()
		}

	case ws.ActionProceed:
		if err := s.a.ProceedToTheory(); err != nil {
			s.reply(err)
		}

	case ws.ActionTheory:
		var req ws.TheoryRequest
		qid, ok := s.decodeQuestion(data, &req, func() string { return req.QID })
		if !ok {
			return
		}
		s.reply(s.a.RecordTheoryAnswer(qid, req.Text))

	case ws.ActionFinalSubmit:
		sub, err := s.a.FinalSubmit()
		if err != nil && errors.Is(err, attempt.ErrInvalidPhase) {
			s.reply(err)
			return
		}
		if err != nil {
			// The attempt already told the student; it stays in theory for a retry.
			s.sendError(string(response.ErrSubmissionHandOff), response.GetMessage(response.ErrSubmissionHandOff))
			s.sendState()
			return
		}
		s.out.Send(ws.FinishedResponse{
			Event:          ws.EventFinished,
			Correct:        sub.Correct,
			ObjectiveTotal: sub.ObjectiveTotal,
			ObjectiveScore: sub.ObjectiveScore,
			TimeExpired:    sub.TimeExpired,
		})

	case ws.ActionPing:
		s.out.Send(ws.PongResponse{Event: ws.EventPong})

	default:
		s.log.Warn().Str("action", string(action)).Msg("Unknown action")
		s.sendError(string(response.ErrInvalidPayload), "unknown action: "+string(action))
	}
}

// decodeQuestion parses a request carrying a question ID.
func (s *attemptSession) decodeQuestion(data []byte, req interface{}, qid func() string) (uuid.UUID, bool) {
	if err := json.Unmarshal(data, req); err != nil {
		s.sendError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(qid())
	if err != nil {
		s.reply(attempt.ErrUnknownQuestion)
		return uuid.Nil, false
	}
	return id, true
}

// reply answers an action: the fresh state on success, otherwise an error
// event plus an error notification so the rejection shows up as a toast.
func (s *attemptSession) reply(err error) {
	if err != nil {
		_, code := classifyError(err)
		msg := response.GetMessage(code)
		s.sendError(string(code), msg)
		s.notifier.Notify("Action Not Allowed", msg, notify.KindError)
		return
	}
	s.sendState()
}

func (s *attemptSession) sendState() {
	s.out.Send(ws.StateResponse{Event: ws.EventState, Attempt: s.a.Snapshot()})
}

func (s *attemptSession) sendError(code, msg string) {
	s.out.Send(ws.ErrorResponse{Event: ws.EventError, Code: code, Error: msg})
}

// LiveStream godoc
// WS /ws/v1/student/live
// Pushes the student's class live list whenever an admin changes it.
func (h *WSHandler) LiveStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("student_id", claims.UserID).Str("class", string(claims.Class)).Logger()

	out := ws.NewWriter(conn, writerBuffer)
	go out.Run()
	defer out.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	h.forwardLiveChanges(ctx, out, claims.Class, wsLog)

	if exams, err := h.classSummaries(ctx, claims.Class); err == nil {
		out.Send(ws.LiveChangedResponse{Event: ws.EventLiveChanged, Exams: exams})
	}

	for {
		data, err := ws.ReadMessage(conn)
		if err != nil {
			wsLog.Debug().Msg("Live feed closed")
			return
		}
		var env ws.RequestEnvelope
		if json.Unmarshal(data, &env) == nil && env.Action == ws.ActionPing {
			out.Send(ws.PongResponse{Event: ws.EventPong})
		}
	}
}

// forwardLiveChanges relays registry changes that concern class to out until
// ctx ends. A failed subscription only disables the relay.
func (h *WSHandler) forwardLiveChanges(ctx context.Context, out *ws.Writer, class model.ClassLevel, log zerolog.Logger) {
	events, cancel, err := h.liveService.Subscribe(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Live change feed unavailable")
		return
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-out.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Type != live.EventCleared && ev.Class != class {
					continue
				}
				exams, err := h.classSummaries(ctx, class)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to read live exams")
					continue
				}
				out.Send(ws.LiveChangedResponse{Event: ws.EventLiveChanged, Change: ev, Exams: exams})
			}
		}
	}()
}

func (h *WSHandler) classSummaries(ctx context.Context, class model.ClassLevel) ([]model.ExamSummary, error) {
	entries, err := h.liveService.ForClass(ctx, class)
	if err != nil {
		return nil, err
	}
	exams := make([]model.ExamSummary, len(entries))
	for i, e := range entries {
		exams[i] = e.Exam.Summary()
	}
	return exams, nil
}
