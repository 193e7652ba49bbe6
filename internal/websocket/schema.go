package websocket

import (
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/notify"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect           Action = "select"
	ActionNext             Action = "next"
	ActionBack             Action = "back"
	ActionSubmitObjectives Action = "submit_objectives"
	ActionProceed          Action = "proceed"
	ActionTheory           Action = "theory"
	ActionFinalSubmit      Action = "final_submit"
	ActionPing             Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SelectRequest picks an option for an objective question.
type SelectRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Option string `json:"option"`
}

// TheoryRequest stores the free text for a theory question.
type TheoryRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Text   string `json:"text"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState        Event = "state"
	EventTick         Event = "tick"
	EventNotification Event = "notification"
	EventNavigate     Event = "navigate"
	EventFinished     Event = "finished"
	EventError        Event = "error"
	EventPong         Event = "pong"
	EventLiveChanged  Event = "live_changed"
)

type StateResponse struct {
	Event   Event            `json:"event"`
	Attempt attempt.Snapshot `json:"attempt"`
}

type TickResponse struct {
	Event         Event   `json:"event"`
	SecondsLeft   int     `json:"seconds_left"`
	TimeRemaining string  `json:"time_remaining"`
	Progress      float64 `json:"progress"`
}

type NotificationResponse struct {
	Event   Event       `json:"event"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Kind    notify.Kind `json:"kind"`
}

type NavigateResponse struct {
	Event Event  `json:"event"`
	Route string `json:"route"`
}

type FinishedResponse struct {
	Event          Event   `json:"event"`
	Correct        int     `json:"correct"`
	ObjectiveTotal int     `json:"objective_total"`
	ObjectiveScore float64 `json:"objective_score"`
	TimeExpired    bool    `json:"time_expired"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type LiveChangedResponse struct {
	Event  Event               `json:"event"`
	Change live.Event          `json:"change"`
	Exams  []model.ExamSummary `json:"exams"`
}
