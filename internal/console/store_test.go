package console

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cragr/snow-incident-console/internal/models"
)

func TestStore_RefreshReplacesSnapshot(t *testing.T) {
	service := &mockService{incidents: seedIncidents()}
	store := NewStore(service, StaticSession(true), newTestLogger())

	if store.Version() != 0 || store.Len() != 0 {
		t.Fatal("expected empty store before first refresh")
	}

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if store.Len() != 2 || store.Version() != 1 {
		t.Fatalf("expected 2 incidents at version 1, got %d at %d", store.Len(), store.Version())
	}

	service.incidents = service.incidents[:1]
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected wholesale replacement to 1 incident, got %d", store.Len())
	}
}

func TestStore_UnauthenticatedLeavesSnapshot(t *testing.T) {
	service := &mockService{incidents: seedIncidents()}
	session := &toggleSession{authenticated: true}
	store := NewStore(service, session, newTestLogger())
	store.Refresh(context.Background())

	session.authenticated = false
	service.incidents = nil

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if service.listCalls != 1 {
		t.Errorf("expected no list call while unauthenticated, got %d calls", service.listCalls)
	}
	if store.Len() != 2 {
		t.Errorf("expected store kept, got %d incidents", store.Len())
	}
}

func TestStore_ErrorKeepsLastKnown(t *testing.T) {
	service := &mockService{incidents: seedIncidents()}
	store := NewStore(service, StaticSession(true), newTestLogger())
	store.Refresh(context.Background())

	service.listErr = errors.New("boom")
	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected error surfaced to caller")
	}
	if store.Len() != 2 || store.Version() != 1 {
		t.Errorf("expected last known snapshot kept, got %d at version %d", store.Len(), store.Version())
	}
	if service.listCalls != 2 {
		t.Errorf("expected no automatic retry, got %d list calls", service.listCalls)
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	service := &mockService{incidents: seedIncidents()}
	store := NewStore(service, StaticSession(true), newTestLogger())
	store.Refresh(context.Background())

	snapshot := store.Snapshot()
	snapshot[0].ShortDescription = "mutated"

	got, _ := store.Get("a")
	if got.ShortDescription != "disk full" {
		t.Error("expected Snapshot to return a copy")
	}
}

func TestStore_EmptyListIsNotNil(t *testing.T) {
	store := NewStore(&mockService{}, StaticSession(true), newTestLogger())
	store.Refresh(context.Background())

	if store.Snapshot() == nil {
		t.Error("expected empty, non-nil snapshot after a successful empty refresh")
	}
}

// gatedLister blocks each ListIncidents call until released, so tests can
// control the order in which overlapping refreshes complete.
type gatedLister struct {
	started chan int
	release []chan []models.Incident
	mu      sync.Mutex
	calls   int
}

func newGatedLister(n int) *gatedLister {
	l := &gatedLister{started: make(chan int, n)}
	for i := 0; i < n; i++ {
		l.release = append(l.release, make(chan []models.Incident, 1))
	}
	return l
}

func (l *gatedLister) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	l.mu.Lock()
	idx := l.calls
	l.calls++
	l.mu.Unlock()

	l.started <- idx
	return <-l.release[idx], nil
}

func TestStore_OverlappingRefreshDiscardsOlderResponse(t *testing.T) {
	lister := newGatedLister(2)
	store := NewStore(lister, StaticSession(true), newTestLogger())

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		store.Refresh(context.Background())
	}()
	<-lister.started

	go func() {
		defer wg.Done()
		store.Refresh(context.Background())
	}()
	<-lister.started

	// The newer request resolves first, then the older one arrives late.
	lister.release[1] <- []models.Incident{{SysID: "newer"}}
	lister.release[0] <- []models.Incident{{SysID: "older"}}
	wg.Wait()

	if _, ok := store.Get("newer"); !ok {
		t.Errorf("expected newer response applied, got %+v", store.Snapshot())
	}
	if _, ok := store.Get("older"); ok {
		t.Error("older response must be discarded")
	}
	if store.Version() != 2 {
		t.Errorf("expected version 2, got %d", store.Version())
	}
}

type toggleSession struct {
	authenticated bool
}

func (s *toggleSession) Authenticated() bool {
	return s.authenticated
}
