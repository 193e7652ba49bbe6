package live

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-portal/internal/model"
)

func publishedExam(class model.ClassLevel) model.Exam {
	return model.Exam{
		ID:              uuid.New(),
		Subject:         "Mathematics",
		Class:           class,
		Status:          model.ExamStatusPublished,
		DurationMinutes: 30,
		ObjectiveQuestions: []model.ObjectiveQuestion{
			{ID: uuid.New(), Prompt: "2+2", Options: []string{"1", "2", "3", "4"}, Correct: "4"},
		},
	}
}

type registryFactory func(t *testing.T) Registry

func newMemory(t *testing.T) Registry {
	return NewMemoryRegistry()
}

func newRedis(t *testing.T) Registry {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRegistry(client, zerolog.Nop())
}

func forEachRegistry(t *testing.T, fn func(t *testing.T, reg Registry)) {
	impls := map[string]registryFactory{
		"memory": newMemory,
		"redis":  newRedis,
	}
	for name, factory := range impls {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestGoLiveTwiceKeepsOneEntry(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		exam := publishedExam(model.ClassSS1)

		if _, err := reg.GoLive(ctx, exam, nil, 1); err != nil {
			t.Fatalf("first go live failed: %v", err)
		}
		if _, err := reg.GoLive(ctx, exam, []int{9}, 2); !errors.Is(err, ErrAlreadyLive) {
			t.Fatalf("expected ErrAlreadyLive, got %v", err)
		}

		entries, err := reg.ForClass(ctx, model.ClassSS1)
		if err != nil {
			t.Fatalf("for class failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Exam.ID != exam.ID {
			t.Fatalf("expected exactly one entry for exam, got %+v", entries)
		}
		if entries[0].PublishedBy != 1 || len(entries[0].Exempted) != 0 {
			t.Fatalf("duplicate go live must not overwrite the entry: %+v", entries[0])
		}
	})
}

func TestGetMissingEntry(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		entry, ok, err := reg.Get(context.Background(), uuid.New())
		if err != nil || ok || entry.Exam.ID != uuid.Nil {
			t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
		}
	})
}

func TestGoLiveRejectsDraft(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		exam := publishedExam(model.ClassJSS2)
		exam.Status = model.ExamStatusDraft

		if _, err := reg.GoLive(ctx, exam, nil, 1); !errors.Is(err, ErrExamNotPublished) {
			t.Fatalf("expected ErrExamNotPublished, got %v", err)
		}
		all, _ := reg.List(ctx)
		if len(all) != 0 {
			t.Fatalf("draft must not be added, got %d entries", len(all))
		}
	})
}

func TestForClassFiltersAndStopRemoves(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		a := publishedExam(model.ClassJSS1)
		b := publishedExam(model.ClassSS3)
		c := publishedExam(model.ClassJSS1)
		for _, e := range []model.Exam{a, b, c} {
			if _, err := reg.GoLive(ctx, e, nil, 1); err != nil {
				t.Fatalf("go live failed: %v", err)
			}
		}

		jss1, _ := reg.ForClass(ctx, model.ClassJSS1)
		if len(jss1) != 2 {
			t.Fatalf("expected 2 JSS 1 entries, got %d", len(jss1))
		}

		stopped, err := reg.StopLive(ctx, a.ID)
		if err != nil || !stopped {
			t.Fatalf("expected stop to succeed, got %v %v", stopped, err)
		}
		stopped, err = reg.StopLive(ctx, a.ID)
		if err != nil || stopped {
			t.Fatalf("second stop must be a no-op, got %v %v", stopped, err)
		}

		jss1, _ = reg.ForClass(ctx, model.ClassJSS1)
		if len(jss1) != 1 || jss1[0].Exam.ID != c.ID {
			t.Fatalf("unexpected JSS 1 entries after stop: %+v", jss1)
		}
		if _, ok, _ := reg.Get(ctx, b.ID); !ok {
			t.Fatalf("other class entry must remain")
		}
	})
}

func TestClearPublisherOnlyRemovesOwnEntries(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		mine := publishedExam(model.ClassSS2)
		theirs := publishedExam(model.ClassSS2)
		_, _ = reg.GoLive(ctx, mine, nil, 1)
		_, _ = reg.GoLive(ctx, theirs, nil, 2)

		n, err := reg.ClearPublisher(ctx, 1)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 removed, got %d %v", n, err)
		}
		all, _ := reg.List(ctx)
		if len(all) != 1 || all[0].Exam.ID != theirs.ID {
			t.Fatalf("unexpected remaining entries: %+v", all)
		}

		if err := reg.Clear(ctx); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		all, _ = reg.List(ctx)
		if len(all) != 0 {
			t.Fatalf("expected empty registry after clear, got %d", len(all))
		}
	})
}

func TestExemptionsRecordedButNotEnforcedByDefault(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		exam := publishedExam(model.ClassJSS3)

		if _, err := reg.GoLive(ctx, exam, []int{42, 7, 42}, 1); err != nil {
			t.Fatalf("go live failed: %v", err)
		}
		entry, ok, err := reg.Get(ctx, exam.ID)
		if err != nil || !ok {
			t.Fatalf("entry missing: %v", err)
		}
		if !entry.IsExempt(42) || !entry.IsExempt(7) || entry.IsExempt(8) {
			t.Fatalf("exemptions not recorded: %v", entry.Exempted)
		}
		if len(entry.Exempted) != 2 {
			t.Fatalf("expected deduplicated exemptions, got %v", entry.Exempted)
		}

		if !IgnoreExemptions.AllowAttempt(entry, 42) {
			t.Fatalf("default policy must let an exempted student in")
		}
		if EnforceExemptions.AllowAttempt(entry, 42) {
			t.Fatalf("enforcing policy must refuse an exempted student")
		}
		if !PolicyFor(false).AllowAttempt(entry, 42) {
			t.Fatalf("PolicyFor(false) must not enforce")
		}
	})
}

func TestEntryIsSnapshot(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	exam := publishedExam(model.ClassSS1)

	if _, err := reg.GoLive(ctx, exam, nil, 1); err != nil {
		t.Fatalf("go live failed: %v", err)
	}
	exam.ObjectiveQuestions[0].Options[0] = "changed"

	entry, _, _ := reg.Get(ctx, exam.ID)
	if entry.Exam.ObjectiveQuestions[0].Options[0] != "1" {
		t.Fatalf("registry entry shares memory with caller's exam")
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx := context.Background()
		events, cancel, err := reg.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		defer cancel()

		exam := publishedExam(model.ClassSS1)
		if _, err := reg.GoLive(ctx, exam, nil, 1); err != nil {
			t.Fatalf("go live failed: %v", err)
		}
		if _, err := reg.StopLive(ctx, exam.ID); err != nil {
			t.Fatalf("stop failed: %v", err)
		}

		want := []EventType{EventWentLive, EventStopped}
		for _, typ := range want {
			select {
			case ev := <-events:
				if ev.Type != typ || ev.ExamID != exam.ID || ev.Class != model.ClassSS1 {
					t.Fatalf("expected %s for exam, got %+v", typ, ev)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for %s", typ)
			}
		}
	})
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, reg Registry) {
		ctx, stop := context.WithCancel(context.Background())
		events, cancel, err := reg.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		defer cancel()

		stop()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatalf("channel not closed after context cancel")
			}
		}
	})
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	events, cancel, _ := reg.Subscribe(ctx)
	defer cancel()

	var last model.Exam
	for i := 0; i < subscriberBuffer+5; i++ {
		last = publishedExam(model.ClassSS1)
		if _, err := reg.GoLive(ctx, last, nil, 1); err != nil {
			t.Fatalf("go live failed: %v", err)
		}
	}

	var got Event
	for i := 0; i < subscriberBuffer; i++ {
		got = <-events
	}
	if got.ExamID != last.ID {
		t.Fatalf("expected newest event to survive, got %s", got.ExamID)
	}
}
