package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-portal/internal/model"
)

// MemoryRegistry keeps the live set in process memory. It suits a single
// server instance and tests.
type MemoryRegistry struct {
	mu          sync.RWMutex
	entries     map[uuid.UUID]Entry
	subscribers map[chan Event]struct{}
	now         func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries:     make(map[uuid.UUID]Entry),
		subscribers: make(map[chan Event]struct{}),
		now:         time.Now,
	}
}

func (r *MemoryRegistry) GoLive(_ context.Context, exam model.Exam, exempted []int, publishedBy int) (Entry, error) {
	entry, err := newEntry(exam, exempted, publishedBy, r.now())
	if err != nil {
		return Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[exam.ID]; ok {
		return Entry{}, ErrAlreadyLive
	}
	r.entries[exam.ID] = entry
	r.broadcastLocked(Event{Type: EventWentLive, ExamID: exam.ID, Class: exam.Class, At: entry.WentLiveAt})
	return entry, nil
}

func (r *MemoryRegistry) StopLive(_ context.Context, examID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[examID]
	if !ok {
		return false, nil
	}
	delete(r.entries, examID)
	r.broadcastLocked(Event{Type: EventStopped, ExamID: examID, Class: entry.Exam.Class, At: r.now().UTC()})
	return true, nil
}

func (r *MemoryRegistry) Get(_ context.Context, examID uuid.UUID) (Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[examID]
	return entry, ok, nil
}

func (r *MemoryRegistry) ForClass(_ context.Context, class model.ClassLevel) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0)
	for _, e := range r.entries {
		if e.Exam.Class == class {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (r *MemoryRegistry) ClearPublisher(_ context.Context, adminID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if e.PublishedBy != adminID {
			continue
		}
		delete(r.entries, id)
		removed++
		r.broadcastLocked(Event{Type: EventStopped, ExamID: id, Class: e.Exam.Class, At: r.now().UTC()})
	}
	return removed, nil
}

func (r *MemoryRegistry) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.broadcastLocked(Event{Type: EventCleared, At: r.now().UTC()})
	return nil
}

func (r *MemoryRegistry) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, ch)
			close(ch)
			r.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}

func (r *MemoryRegistry) broadcastLocked(ev Event) {
	for ch := range r.subscribers {
		sendDropOldest(ch, ev)
	}
}
