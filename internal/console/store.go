package console

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cragr/snow-incident-console/internal/models"
)

// Lister fetches the full incident list.
type Lister interface {
	ListIncidents(ctx context.Context) ([]models.Incident, error)
}

// Store holds the incidents from the most recent applied list response.
// It is only ever replaced wholesale, never patched.
//
// Each Refresh takes a token when issued. A response is applied only if
// its token is newer than the last applied one, so when refreshes
// overlap an older response can never overwrite a newer one.
type Store struct {
	lister  Lister
	session Session
	logger  *slog.Logger

	issued atomic.Uint64

	mu        sync.RWMutex
	applied   uint64
	incidents []models.Incident
}

// NewStore creates an empty store.
func NewStore(lister Lister, session Session, logger *slog.Logger) *Store {
	return &Store{
		lister:  lister,
		session: session,
		logger:  logger,
	}
}

// Refresh re-fetches the list and replaces the held incidents. Without an
// authenticated session it does nothing. On error the held incidents are
// kept and the error is returned; it is not retried.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.session.Authenticated() {
		s.logger.Debug("skipping refresh, session not authenticated")
		return nil
	}

	token := s.issued.Add(1)

	incidents, err := s.lister.ListIncidents(ctx)
	if err != nil {
		s.logger.Error("failed to refresh incidents", "token", token, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token <= s.applied {
		s.logger.Debug("discarding stale refresh",
			"token", token,
			"applied", s.applied,
		)
		return nil
	}

	s.applied = token
	s.incidents = slices.Clone(incidents)
	if s.incidents == nil {
		s.incidents = []models.Incident{}
	}

	s.logger.Debug("refreshed incidents", "token", token, "count", len(incidents))
	return nil
}

// Snapshot returns a copy of the held incidents.
func (s *Store) Snapshot() []models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.incidents)
}

// Get returns the held incident with the given sys_id.
func (s *Store) Get(sysID string) (models.Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, incident := range s.incidents {
		if incident.SysID == sysID {
			return incident, true
		}
	}
	return models.Incident{}, false
}

// Len returns the number of held incidents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}

// Version returns the token of the last applied refresh; 0 means the
// store has never been filled.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}
