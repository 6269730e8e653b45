package console

import (
	"context"
	"sync/atomic"
)

// Session reports whether the user is authenticated. Every data operation
// is gated on it.
type Session interface {
	Authenticated() bool
}

// StaticSession is a Session with a fixed answer.
type StaticSession bool

// Authenticated implements Session.
func (s StaticSession) Authenticated() bool {
	return bool(s)
}

// Authenticator asks the remote side whether the current session is valid.
type Authenticator interface {
	Authenticated(ctx context.Context) (bool, error)
}

// RemoteSession caches the answer of the last Probe.
type RemoteSession struct {
	auth          Authenticator
	authenticated atomic.Bool
}

// NewRemoteSession creates an unauthenticated session backed by auth.
func NewRemoteSession(auth Authenticator) *RemoteSession {
	return &RemoteSession{auth: auth}
}

// Probe refreshes the cached answer. A failed probe counts as
// unauthenticated.
func (s *RemoteSession) Probe(ctx context.Context) error {
	ok, err := s.auth.Authenticated(ctx)
	if err != nil {
		s.authenticated.Store(false)
		return err
	}
	s.authenticated.Store(ok)
	return nil
}

// Authenticated implements Session.
func (s *RemoteSession) Authenticated() bool {
	return s.authenticated.Load()
}
