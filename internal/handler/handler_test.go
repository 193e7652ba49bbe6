package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/notify"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/scoring"
	"github.com/stemsi/exstem-portal/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testStudentID = 7

type stubExams map[uuid.UUID]model.Exam

func (s stubExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := s[id]
	if !ok {
		return nil, service.ErrExamNotFound
	}
	c := e.Clone()
	return &c, nil
}

func (s stubExams) ListByClass(context.Context, model.ClassLevel) ([]model.Exam, error) {
	return nil, nil
}

func (s stubExams) ListPublished(context.Context) ([]model.ExamSummary, error) {
	var out []model.ExamSummary
	for _, e := range s {
		out = append(out, e.Summary())
	}
	return out, nil
}

type recordingSink struct {
	mu   sync.Mutex
	subs []model.Submission
	err  error
}

func (s *recordingSink) Enqueue(_ context.Context, sub model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *recordingSink) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type portal struct {
	exam     model.Exam
	live     *service.LiveService
	attempts *service.AttemptService
	sink     *recordingSink
	server   *httptest.Server
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	exam := model.Exam{
		ID:              uuid.New(),
		Subject:         "Agricultural Science",
		Class:           model.ClassJSS2,
		Status:          model.ExamStatusPublished,
		DurationMinutes: 10,
		ObjectiveQuestions: []model.ObjectiveQuestion{
			{ID: uuid.New(), Prompt: "Which is a cash crop?", Options: []string{"Cocoa", "Grass", "Sand", "Water"}, Correct: "Cocoa"},
		},
		TheoryQuestions: []model.TheoryQuestion{{ID: uuid.New(), Prompt: "Describe crop rotation."}},
	}
	exams := stubExams{exam.ID: exam}
	registry := live.NewMemoryRegistry()
	sink := &recordingSink{}
	log := zerolog.Nop()

	p := &portal{
		exam: exam,
		live: service.NewLiveService(registry, exams, false, log),
		attempts: service.NewAttemptService(service.AttemptServiceConfig{
			Registry:      registry,
			Exams:         exams,
			Sink:          sink,
			TimerInterval: time.Hour,
		}, log),
		sink: sink,
	}

	ws := NewWSHandler(p.attempts, p.live, log, nil)
	portalHandler := NewStudentPortalHandler(p.live, p.attempts, nil, log)

	r := gin.New()
	student := r.Group("/", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{
			TokenType: service.TokenTypeStudent,
			UserID:    testStudentID,
			Class:     model.ClassJSS2,
		})
		c.Next()
	})
	student.GET("/ws/attempt", ws.AttemptStream)
	student.GET("/ws/live", ws.LiveStream)
	student.POST("/exams/:exam_id/attempt", portalHandler.StartAttempt)

	p.server = httptest.NewServer(r)
	t.Cleanup(p.server.Close)
	t.Cleanup(func() { p.attempts.AbandonAll() })
	return p
}

func (p *portal) goLive(t *testing.T) {
	t.Helper()
	if _, err := p.live.GoLive(context.Background(), model.GoLiveRequest{ExamID: p.exam.ID}, 1); err != nil {
		t.Fatalf("go live: %v", err)
	}
}

func (p *portal) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(p.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type event struct {
	Event   string              `json:"event"`
	Code    string              `json:"code"`
	Kind    string              `json:"kind"`
	Route   string              `json:"route"`
	Attempt attempt.Snapshot    `json:"attempt"`
	Exams   []model.ExamSummary `json:"exams"`
	Correct int                 `json:"correct"`
}

// next reads events until one named want arrives, skipping the rest.
func next(t *testing.T, conn *websocket.Conn, want string) event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if ev.Event == want {
			return ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]string) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestAttemptStreamWithoutAttemptSendsStudentHome(t *testing.T) {
	p := newPortal(t)
	conn := p.dial(t, "/ws/attempt")

	if ev := next(t, conn, "error"); ev.Code != string(response.ErrNoActiveAttempt) {
		t.Fatalf("expected NO_ACTIVE_ATTEMPT, got %q", ev.Code)
	}
	if ev := next(t, conn, "navigate"); ev.Route != attempt.RouteDashboard {
		t.Fatalf("expected dashboard route, got %q", ev.Route)
	}
}

func TestAttemptStreamRunsWholeExam(t *testing.T) {
	p := newPortal(t)
	p.goLive(t)
	if _, _, err := p.attempts.Start(context.Background(), service.StudentRef{ID: testStudentID, Class: model.ClassJSS2}, p.exam.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := p.dial(t, "/ws/attempt")

	state := next(t, conn, "state")
	if state.Attempt.Phase != attempt.PhaseObjectives || state.Attempt.Question == nil {
		t.Fatalf("unexpected initial state %+v", state.Attempt)
	}
	qid := state.Attempt.Question.ID.String()

	send(t, conn, map[string]string{"action": "select", "q_id": qid, "option": "Gold"})
	if ev := next(t, conn, "error"); ev.Code != string(response.ErrInvalidOption) {
		t.Fatalf("expected INVALID_OPTION, got %q", ev.Code)
	}
	if ev := next(t, conn, "notification"); ev.Kind != string(notify.KindError) {
		t.Fatalf("expected an error notification, got kind %q", ev.Kind)
	}

	send(t, conn, map[string]string{"action": "proceed"})
	if ev := next(t, conn, "error"); ev.Code != string(response.ErrInvalidPhase) {
		t.Fatalf("expected INVALID_PHASE, got %q", ev.Code)
	}

	send(t, conn, map[string]string{"action": "select", "q_id": qid, "option": "Cocoa"})
	if ev := next(t, conn, "state"); ev.Attempt.Answered != 1 {
		t.Fatalf("expected one answer, got %d", ev.Attempt.Answered)
	}

	send(t, conn, map[string]string{"action": "submit_objectives"})
	if ev := next(t, conn, "state"); ev.Attempt.Phase != attempt.PhaseCheckpoint {
		t.Fatalf("expected checkpoint, got %s", ev.Attempt.Phase)
	}

	send(t, conn, map[string]string{"action": "proceed"})
	theory := next(t, conn, "state")
	if theory.Attempt.Phase != attempt.PhaseTheory || len(theory.Attempt.Theory) != 1 {
		t.Fatalf("expected theory phase, got %+v", theory.Attempt)
	}

	send(t, conn, map[string]string{"action": "ping"})
	next(t, conn, "pong")

	send(t, conn, map[string]string{"action": "final_submit"})
	if ev := next(t, conn, "finished"); ev.Correct != 1 {
		t.Fatalf("expected 1 correct, got %d", ev.Correct)
	}
	if p.sink.count() != 1 {
		t.Fatalf("expected one submission, got %d", p.sink.count())
	}
	if _, err := p.attempts.Current(testStudentID); !errors.Is(err, service.ErrNoActiveAttempt) {
		t.Fatalf("expected attempt to be gone, got %v", err)
	}
}

func TestFinalSubmitSurvivesQueueOutage(t *testing.T) {
	p := newPortal(t)
	p.goLive(t)
	if _, _, err := p.attempts.Start(context.Background(), service.StudentRef{ID: testStudentID, Class: model.ClassJSS2}, p.exam.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := p.dial(t, "/ws/attempt")
	next(t, conn, "state")

	send(t, conn, map[string]string{"action": "submit_objectives"})
	next(t, conn, "state")
	send(t, conn, map[string]string{"action": "proceed"})
	next(t, conn, "state")

	p.sink.fail(errors.New("redis down"))
	send(t, conn, map[string]string{"action": "final_submit"})
	if ev := next(t, conn, "error"); ev.Code != string(response.ErrSubmissionHandOff) {
		t.Fatalf("expected SUBMISSION_FAILED, got %q", ev.Code)
	}
	if ev := next(t, conn, "state"); ev.Attempt.Phase != attempt.PhaseTheory {
		t.Fatalf("expected to stay in theory, got %s", ev.Attempt.Phase)
	}

	p.sink.fail(nil)
	send(t, conn, map[string]string{"action": "final_submit"})
	next(t, conn, "finished")
	if p.sink.count() != 1 {
		t.Fatalf("expected one submission after retry, got %d", p.sink.count())
	}
}

func TestLiveStreamFollowsRegistry(t *testing.T) {
	p := newPortal(t)
	conn := p.dial(t, "/ws/live")

	if ev := next(t, conn, "live_changed"); len(ev.Exams) != 0 {
		t.Fatalf("expected empty initial list, got %d", len(ev.Exams))
	}

	// The subscription is registered before the first push, so this change
	// cannot be missed.
	p.goLive(t)
	ev := next(t, conn, "live_changed")
	if len(ev.Exams) != 1 || ev.Exams[0].ID != p.exam.ID {
		t.Fatalf("expected the live exam, got %+v", ev.Exams)
	}
}

func TestStartAttemptResponses(t *testing.T) {
	p := newPortal(t)
	post := func(path string) (int, response.Response) {
		resp, err := http.Post(p.server.URL+path, "application/json", nil)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		var body response.Response
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.StatusCode, body
	}

	status, body := post("/exams/not-a-uuid/attempt")
	if status != http.StatusNotFound || body.Error.Redirect != attempt.RouteDashboard {
		t.Fatalf("expected 404 with redirect, got %d %+v", status, body.Error)
	}

	status, body = post(fmt.Sprintf("/exams/%s/attempt", p.exam.ID))
	if status != http.StatusNotFound || body.Error.Code != response.ErrExamNotLive {
		t.Fatalf("expected EXAM_NOT_LIVE, got %d %+v", status, body.Error)
	}

	p.goLive(t)
	if status, _ = post(fmt.Sprintf("/exams/%s/attempt", p.exam.ID)); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if status, _ = post(fmt.Sprintf("/exams/%s/attempt", p.exam.ID)); status != http.StatusOK {
		t.Fatalf("expected 200 on resume, got %d", status)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
		{fmt.Errorf("wrap: %w", live.ErrAlreadyLive), http.StatusConflict, response.ErrExamAlreadyLive},
		{live.ErrExamNotPublished, http.StatusConflict, response.ErrExamNotPublished},
		{service.ErrExempted, http.StatusForbidden, response.ErrExamExempted},
		{attempt.ErrInvalidOption, http.StatusBadRequest, response.ErrInvalidOption},
		{scoring.ErrExamOutOfRange, http.StatusBadRequest, response.ErrScoreOutOfRange},
		{errors.New("disk on fire"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tc := range cases {
		status, code := classifyError(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("%v: got %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}
