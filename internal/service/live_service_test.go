package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/model"
)

func TestLiveServiceAvailableExcludesLiveExams(t *testing.T) {
	math := publishedExam(model.ClassSS1, "Mathematics")
	english := publishedExam(model.ClassSS1, "English")
	draft := publishedExam(model.ClassSS2, "Physics")
	draft.Status = model.ExamStatusDraft

	svc := NewLiveService(live.NewMemoryRegistry(), newFakeExamStore(math, english, draft), false, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: math.ID}, 1); err != nil {
		t.Fatalf("go live: %v", err)
	}

	available, err := svc.Available(ctx)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 1 || available[0].ID != english.ID {
		t.Fatalf("expected only English to be available, got %+v", available)
	}
}

func TestLiveServiceRejectsDraftAndDuplicate(t *testing.T) {
	math := publishedExam(model.ClassSS1, "Mathematics")
	draft := publishedExam(model.ClassSS1, "Physics")
	draft.Status = model.ExamStatusDraft

	svc := NewLiveService(live.NewMemoryRegistry(), newFakeExamStore(math, draft), false, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: draft.ID}, 1); !errors.Is(err, live.ErrExamNotPublished) {
		t.Fatalf("expected ErrExamNotPublished, got %v", err)
	}
	if _, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: math.ID}, 1); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if _, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: math.ID}, 2); !errors.Is(err, live.ErrAlreadyLive) {
		t.Fatalf("expected ErrAlreadyLive, got %v", err)
	}

	entries, _ := svc.List(ctx)
	if len(entries) != 1 || entries[0].PublishedBy != 1 {
		t.Fatalf("expected the first publisher's entry only, got %+v", entries)
	}
}

func TestLiveServiceAdminSessionHooks(t *testing.T) {
	math := publishedExam(model.ClassSS1, "Mathematics")
	english := publishedExam(model.ClassSS2, "English")
	registry := live.NewMemoryRegistry()
	ctx := context.Background()

	svc := NewLiveService(registry, newFakeExamStore(math, english), true, zerolog.Nop())
	if _, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: math.ID}, 1); err != nil {
		t.Fatalf("go live: %v", err)
	}
	if _, err := svc.GoLive(ctx, model.GoLiveRequest{ExamID: english.ID}, 2); err != nil {
		t.Fatalf("go live: %v", err)
	}

	if err := svc.OnAdminLogout(ctx, 1); err != nil {
		t.Fatalf("logout: %v", err)
	}
	entries, _ := svc.List(ctx)
	if len(entries) != 1 || entries[0].Exam.ID != english.ID {
		t.Fatalf("expected only admin 2's exam to remain, got %+v", entries)
	}

	if err := svc.OnAdminLogin(ctx, 3); err != nil {
		t.Fatalf("login: %v", err)
	}
	entries, _ = svc.List(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected registry cleared on admin login, got %d", len(entries))
	}
}
