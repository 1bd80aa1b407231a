// Package kb holds the in-memory subject store.
package kb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/astro-aspects/model"
)

var (
	// ErrSubjectNotFound is returned when no subject has the requested ID.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrSubjectExists is returned when storing a subject whose ID is taken.
	ErrSubjectExists = errors.New("subject already exists")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventSubjectStored EventType = iota
	EventSubjectDeleted
)

func (t EventType) String() string {
	switch t {
	case EventSubjectStored:
		return "stored"
	case EventSubjectDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is emitted to subscribers after a change is committed.
type Event struct {
	Type    EventType
	Subject model.Subject
}

// ChartStore is an in-memory, thread-safe subject store.
type ChartStore struct {
	mu sync.RWMutex

	subjects map[string]*model.Subject

	nextSub int
	subs    map[int]func(Event)
}

// NewChartStore constructs an empty store.
func NewChartStore() *ChartStore {
	return &ChartStore{
		subjects: make(map[string]*model.Subject),
		subs:     make(map[int]func(Event)),
	}
}

// Put adds a new subject. It fails with ErrSubjectExists if the ID is taken.
func (s *ChartStore) Put(_ context.Context, subj *model.Subject) error {
	if subj == nil || subj.ID == "" {
		return fmt.Errorf("subject ID is required")
	}
	s.mu.Lock()
	if _, exists := s.subjects[subj.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSubjectExists, subj.ID)
	}
	stored := *subj
	s.subjects[subj.ID] = &stored
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventSubjectStored, Subject: stored})
	return nil
}

// Get returns a copy of the subject with the given ID.
func (s *ChartStore) Get(_ context.Context, id string) (*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subj, ok := s.subjects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSubjectNotFound, id)
	}
	out := *subj
	return &out, nil
}

// List returns a snapshot of all subjects ordered by creation time, then ID.
func (s *ChartStore) List(_ context.Context) ([]*model.Subject, error) {
	s.mu.RLock()
	res := make([]*model.Subject, 0, len(s.subjects))
	for _, subj := range s.subjects {
		out := *subj
		res = append(res, &out)
	}
	s.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

// Delete removes a subject and notifies subscribers.
func (s *ChartStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	subj, ok := s.subjects[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSubjectNotFound, id)
	}
	delete(s.subjects, id)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventSubjectDeleted, Subject: *subj})
	return nil
}

// Len returns the number of stored subjects.
func (s *ChartStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subjects)
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function that is safe to call more than once.
func (s *ChartStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// snapshotSubs must be called with mu held.
func (s *ChartStore) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// Subscribers run outside the lock so they may call back into the store.
func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
