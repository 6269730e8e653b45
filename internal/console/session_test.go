package console

import (
	"context"
	"errors"
	"testing"
)

type fakeAuthenticator struct {
	ok  bool
	err error
}

func (f fakeAuthenticator) Authenticated(ctx context.Context) (bool, error) {
	return f.ok, f.err
}

func TestRemoteSession(t *testing.T) {
	session := NewRemoteSession(fakeAuthenticator{ok: true})
	if session.Authenticated() {
		t.Error("expected unauthenticated before first probe")
	}

	if err := session.Probe(context.Background()); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !session.Authenticated() {
		t.Error("expected authenticated after successful probe")
	}

	session.auth = fakeAuthenticator{err: errors.New("unreachable")}
	if err := session.Probe(context.Background()); err == nil {
		t.Error("expected probe error")
	}
	if session.Authenticated() {
		t.Error("failed probe must count as unauthenticated")
	}
}

func TestStaticSession(t *testing.T) {
	if !StaticSession(true).Authenticated() || StaticSession(false).Authenticated() {
		t.Error("StaticSession must report its value")
	}
}
