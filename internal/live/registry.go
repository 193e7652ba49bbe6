// Package live holds the registry of exams currently broadcast to classes.
//
// An admin "goes live" with a Published exam; students whose class matches
// see it in their dashboard and may start an attempt. The registry is shared
// across admin and student sessions, so both implementations make go-live an
// atomic compare-and-set on the exam ID and broadcast every change to
// subscribers.
package live

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-portal/internal/model"
)

var (
	ErrAlreadyLive      = errors.New("exam is already live")
	ErrExamNotPublished = errors.New("only published exams can go live")
	ErrNotLive          = errors.New("exam is not live")
)

// subscriberBuffer is the per-subscriber event buffer. A slow subscriber
// loses its oldest pending event rather than blocking the registry.
const subscriberBuffer = 16

// Entry is one live exam. Exam is a snapshot taken at go-live time.
type Entry struct {
	Exam        model.Exam `json:"exam"`
	Exempted    []int      `json:"exempted_student_ids"`
	PublishedBy int        `json:"published_by"`
	WentLiveAt  time.Time  `json:"went_live_at"`
}

// IsExempt reports whether the student was unchecked in the go-live dialog.
func (e Entry) IsExempt(studentID int) bool {
	return slices.Contains(e.Exempted, studentID)
}

// Listing is the question-free view of an entry for control panels.
type Listing struct {
	Exam        model.ExamSummary `json:"exam"`
	Exempted    []int             `json:"exempted_student_ids"`
	PublishedBy int               `json:"published_by"`
	WentLiveAt  time.Time         `json:"went_live_at"`
}

// Listing strips the questions and answer key from the entry.
func (e Entry) Listing() Listing {
	exempted := e.Exempted
	if exempted == nil {
		exempted = []int{}
	}
	return Listing{
		Exam:        e.Exam.Summary(),
		Exempted:    exempted,
		PublishedBy: e.PublishedBy,
		WentLiveAt:  e.WentLiveAt,
	}
}

// EventType names a registry change.
type EventType string

const (
	EventWentLive EventType = "went_live"
	EventStopped  EventType = "stopped"
	EventCleared  EventType = "cleared"
)

// Event describes one registry change. ExamID and Class are zero for EventCleared.
type Event struct {
	Type   EventType        `json:"type"`
	ExamID uuid.UUID        `json:"exam_id,omitempty"`
	Class  model.ClassLevel `json:"class,omitempty"`
	At     time.Time        `json:"at"`
}

// Registry is the set of currently live exams, unique by exam ID.
type Registry interface {
	// GoLive adds the exam. It fails with ErrExamNotPublished for a draft and
	// with ErrAlreadyLive when the exam is already present; neither mutates state.
	GoLive(ctx context.Context, exam model.Exam, exempted []int, publishedBy int) (Entry, error)
	// StopLive removes the exam and reports whether it was live.
	StopLive(ctx context.Context, examID uuid.UUID) (bool, error)
	Get(ctx context.Context, examID uuid.UUID) (Entry, bool, error)
	// ForClass lists the live entries whose exam belongs to class.
	ForClass(ctx context.Context, class model.ClassLevel) ([]Entry, error)
	List(ctx context.Context) ([]Entry, error)
	// ClearPublisher removes every entry published by the admin and returns how many.
	ClearPublisher(ctx context.Context, adminID int) (int, error)
	Clear(ctx context.Context) error
	// Subscribe streams changes until ctx ends or cancel is called.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

func newEntry(exam model.Exam, exempted []int, publishedBy int, now time.Time) (Entry, error) {
	if exam.Status != model.ExamStatusPublished {
		return Entry{}, ErrExamNotPublished
	}
	var ex []int
	if len(exempted) > 0 {
		ex = slices.Clone(exempted)
		slices.Sort(ex)
		ex = slices.Compact(ex)
	}
	return Entry{
		Exam:        exam.Clone(),
		Exempted:    ex,
		PublishedBy: publishedBy,
		WentLiveAt:  now.UTC(),
	}, nil
}

// sortEntries orders entries by go-live time, oldest first.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WentLiveAt.Equal(entries[j].WentLiveAt) {
			return entries[i].Exam.ID.String() < entries[j].Exam.ID.String()
		}
		return entries[i].WentLiveAt.Before(entries[j].WentLiveAt)
	})
}

// sendDropOldest delivers ev without blocking. When the buffer is full the
// oldest pending event is discarded.
func sendDropOldest(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
