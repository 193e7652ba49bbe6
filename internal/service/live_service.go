package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
)

// LiveService coordinates admin go-live actions with the live registry.
type LiveService struct {
	registry          live.Registry
	exams             ExamStore
	clearOnAdminLogin bool
	log               zerolog.Logger
}

// NewLiveService creates a new LiveService.
func NewLiveService(registry live.Registry, exams ExamStore, clearOnAdminLogin bool, log zerolog.Logger) *LiveService {
	return &LiveService{
		registry:          registry,
		exams:             exams,
		clearOnAdminLogin: clearOnAdminLogin,
		log:               log.With().Str("component", "live_service").Logger(),
	}
}

// GoLive broadcasts a published exam to its class.
func (s *LiveService) GoLive(ctx context.Context, req model.GoLiveRequest, adminID int) (live.Entry, error) {
	exam, err := s.exams.GetByID(ctx, req.ExamID)
	if err != nil {
		return live.Entry{}, err
	}

	entry, err := s.registry.GoLive(ctx, *exam, req.ExemptedStudentIDs, adminID)
	if err != nil {
		return live.Entry{}, err
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("class", string(exam.Class)).
		Int("admin_id", adminID).
		Int("exempted", len(entry.Exempted)).
		Msg("Exam went live")
	return entry, nil
}

// StopLive takes an exam off the air. Attempts already started continue.
func (s *LiveService) StopLive(ctx context.Context, examID uuid.UUID) (bool, error) {
	stopped, err := s.registry.StopLive(ctx, examID)
	if err != nil {
		return false, err
	}
	if stopped {
		s.log.Info().Str("exam_id", examID.String()).Msg("Exam stopped")
	}
	return stopped, nil
}

// List returns every live entry for admin control panels.
func (s *LiveService) List(ctx context.Context) ([]live.Entry, error) {
	return s.registry.List(ctx)
}

// ForClass returns the live entries a student of class can see.
func (s *LiveService) ForClass(ctx context.Context, class model.ClassLevel) ([]live.Entry, error) {
	return s.registry.ForClass(ctx, class)
}

// Available lists published exams that are not already live, the candidates
// for the go-live dialog.
func (s *LiveService) Available(ctx context.Context) ([]model.ExamSummary, error) {
	published, err := s.exams.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	liveIDs := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		liveIDs[e.Exam.ID] = struct{}{}
	}

	out := make([]model.ExamSummary, 0, len(published))
	for _, e := range published {
		if _, ok := liveIDs[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Subscribe streams registry changes.
func (s *LiveService) Subscribe(ctx context.Context) (<-chan live.Event, func(), error) {
	return s.registry.Subscribe(ctx)
}

// OnAdminLogin re-initializes the registry when configured to. It is off by
// default: other admins may have exams live that students are sitting.
func (s *LiveService) OnAdminLogin(ctx context.Context, adminID int) error {
	if !s.clearOnAdminLogin {
		return nil
	}
	if err := s.registry.Clear(ctx); err != nil {
		return fmt.Errorf("clear live exams: %w", err)
	}
	s.log.Info().Int("admin_id", adminID).Msg("Live exams cleared on admin login")
	return nil
}

// OnAdminLogout removes the exams the admin put live. Entries published by
// other admins stay, and student logout leaves the registry alone, since one
// server shares the registry across every session.
func (s *LiveService) OnAdminLogout(ctx context.Context, adminID int) error {
	n, err := s.registry.ClearPublisher(ctx, adminID)
	if err != nil {
		return fmt.Errorf("clear admin live exams: %w", err)
	}
	if n > 0 {
		s.log.Info().Int("admin_id", adminID).Int("stopped", n).Msg("Live exams stopped on admin logout")
	}
	return nil
}

// Clear empties the registry.
func (s *LiveService) Clear(ctx context.Context) error {
	return s.registry.Clear(ctx)
}
