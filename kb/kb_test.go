package kb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/astro-aspects/model"
)

func subject(id string) *model.Subject {
	return &model.Subject{
		ID:        id,
		Name:      "Subject " + id,
		Birth:     model.BirthData{Date: "1990-06-15", Time: "14:30"},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPutAndGetSubject(t *testing.T) {
	ctx := context.Background()
	store := NewChartStore()
	if err := store.Put(ctx, subject("s1")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name != "Subject s1" {
		t.Fatalf("Get returned %#v, want name Subject s1", got)
	}

	got.Name = "mutated"
	again, _ := store.Get(ctx, "s1")
	if again.Name != "Subject s1" {
		t.Fatalf("store shares memory with callers: %q", again.Name)
	}
}

func TestPutDuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	store := NewChartStore()
	if err := store.Put(ctx, subject("s1")); err != nil {
		t.Fatalf("first Put error: %v", err)
	}
	if err := store.Put(ctx, subject("s1")); !errors.Is(err, ErrSubjectExists) {
		t.Fatalf("duplicate Put error = %v, want ErrSubjectExists", err)
	}
	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("Get(nope) error = %v, want ErrSubjectNotFound", err)
	}
	if err := store.Delete(ctx, "nope"); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("Delete(nope) error = %v, want ErrSubjectNotFound", err)
	}
	if err := store.Put(ctx, &model.Subject{}); err == nil {
		t.Fatalf("expected error for empty ID")
	}
}

func TestListOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	store := NewChartStore()
	for i := range 3 {
		s := subject(fmt.Sprintf("s-%d", i))
		s.CreatedAt = s.CreatedAt.Add(-time.Duration(i) * time.Hour)
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 3 || got[0].ID != "s-2" || got[2].ID != "s-0" {
		t.Fatalf("List order = %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	ctx := context.Background()
	store := NewChartStore()

	var mu sync.Mutex
	var got []Event
	unsubscribe := store.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	if err := store.Put(ctx, subject("s1")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	unsubscribe()
	unsubscribe()
	if err := store.Put(ctx, subject("s2")); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != EventSubjectStored || got[1].Type != EventSubjectDeleted {
		t.Fatalf("event types = %v, %v", got[0].Type, got[1].Type)
	}
	if got[1].Subject.ID != "s1" {
		t.Fatalf("deleted event subject = %q, want s1", got[1].Subject.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewChartStore()
	store.Subscribe(func(Event) {})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Get(ctx, "s-0")
			_, _ = store.List(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = store.Put(ctx, subject(fmt.Sprintf("s-%d", i)))
		}()
	}
	wg.Wait()
	if store.Len() != 10 {
		t.Fatalf("Len = %d, want 10", store.Len())
	}
}
