package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cragr/snow-incident-console/internal/console"
	"github.com/cragr/snow-incident-console/internal/models"
)

// fakeService implements console.IncidentService for testing.
type fakeService struct {
	mu sync.Mutex

	incidents []models.Incident
	deleteErr error

	createCalls []models.CreateIncidentRequest
	updateCalls []models.UpdateIncidentRequest
	deleteCalls []string
}

func (f *fakeService) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Incident(nil), f.incidents...), nil
}

func (f *fakeService) CreateIncident(ctx context.Context, req models.CreateIncidentRequest) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, req)
	return &models.Incident{SysID: "new", Number: "INC0099"}, nil
}

func (f *fakeService) UpdateIncident(ctx context.Context, sysID string, req models.UpdateIncidentRequest) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, req)
	return &models.Incident{SysID: sysID}, nil
}

func (f *fakeService) DeleteIncident(ctx context.Context, sysID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, sysID)
	return f.deleteErr
}

type noopScheduler struct{}

func (noopScheduler) Schedule(time.Duration, func()) {}

func newTestModel(t *testing.T, service *fakeService, authenticated bool) Model {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := console.StaticSession(authenticated)
	store := console.NewStore(service, session, logger)
	c := console.New(service, store, console.Options{
		CreateRefreshDelay: 800 * time.Millisecond,
		Scheduler:          noopScheduler{},
	}, logger)

	model := New(c, session)
	if cmd := model.Init(); cmd != nil {
		model = update(t, model, cmd())
	}
	return model
}

func seed() []models.Incident {
	return []models.Incident{
		{SysID: "a", Number: "INC01", ShortDescription: "disk full", State: models.StateNew, Impact: 2, Urgency: 3, Priority: 4},
		{SysID: "b", Number: "INC02", ShortDescription: "vpn down", State: models.StateInProgress},
	}
}

func update(t *testing.T, model Model, message tea.Msg) Model {
	t.Helper()
	updated, _ := model.Update(message)
	return updated.(Model)
}

func press(t *testing.T, model Model, message tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(message)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyOf(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}

// submit presses a key that is expected to start an asynchronous call,
// runs the call and delivers its result.
func submit(t *testing.T, model Model, message tea.KeyMsg) Model {
	t.Helper()
	model, cmd := press(t, model, message)
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return update(t, model, cmd())
}

func TestModel_InitialLoad(t *testing.T) {
	model := newTestModel(t, &fakeService{incidents: seed()}, true)

	view := model.View()
	for _, want := range []string{"Incident Records", "INC01", "INC02", "vpn down"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_Unauthenticated(t *testing.T) {
	service := &fakeService{incidents: seed()}
	model := newTestModel(t, service, false)

	if cmd := model.Init(); cmd != nil {
		t.Error("Init() must not fetch without a session")
	}
	if !strings.Contains(model.View(), "Please log in") {
		t.Error("expected log in prompt")
	}

	model, _ = press(t, model, runes("n"))
	if model.mode != modeList {
		t.Error("create must be unavailable without a session")
	}
}

func TestModel_Search(t *testing.T) {
	model := newTestModel(t, &fakeService{incidents: seed()}, true)

	// number -> state -> short_description
	model, _ = press(t, model, keyOf(tea.KeyTab))
	model, _ = press(t, model, keyOf(tea.KeyTab))
	if model.searchField != console.FieldShortDescription {
		t.Fatalf("searchField = %q", model.searchField)
	}

	model, _ = press(t, model, runes("/"))
	if model.mode != modeSearch {
		t.Fatal("expected search mode")
	}
	model, _ = press(t, model, runes("VPN"))
	model, _ = press(t, model, keyOf(tea.KeyEnter))

	visible := model.visible()
	if len(visible) != 1 || visible[0].Number != "INC02" {
		t.Errorf("visible = %+v", visible)
	}
	if model.store.Len() != 2 {
		t.Error("search must not change the store")
	}

	model, _ = press(t, model, keyOf(tea.KeyEsc))
	if len(model.visible()) != 2 {
		t.Error("esc should clear the search")
	}
}

func TestModel_CreateFlow(t *testing.T) {
	service := &fakeService{incidents: seed()}
	model := newTestModel(t, service, true)

	model, _ = press(t, model, runes("n"))
	if model.mode != modeCreate {
		t.Fatal("expected create dialog")
	}

	model, _ = press(t, model, runes("printer on fire"))
	model, _ = press(t, model, keyOf(tea.KeyTab))
	model, _ = press(t, model, keyOf(tea.KeyRight)) // impact High
	model, _ = press(t, model, keyOf(tea.KeyTab))
	model, _ = press(t, model, keyOf(tea.KeyLeft)) // urgency Low

	model = submit(t, model, keyOf(tea.KeyEnter))

	if len(service.createCalls) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(service.createCalls))
	}
	req := service.createCalls[0]
	if req.ShortDescription != "printer on fire" || req.Impact != 1 || req.Urgency != 3 {
		t.Errorf("create request = %+v", req)
	}
	if model.mode != modeList {
		t.Error("expected dialog closed after success")
	}
	if model.create.State() != console.DialogClosed {
		t.Errorf("create dialog state = %s", model.create.State())
	}
}

func TestModel_CreateValidation(t *testing.T) {
	service := &fakeService{}
	model := newTestModel(t, service, true)

	model, _ = press(t, model, runes("n"))
	model, cmd := press(t, model, keyOf(tea.KeyEnter))
	if cmd != nil {
		t.Error("invalid draft must not start a call")
	}
	if len(service.createCalls) != 0 {
		t.Error("no create call expected")
	}
	if !strings.Contains(model.View(), "Please fill description, impact and urgency") {
		t.Error("expected validation message in dialog")
	}

	model, _ = press(t, model, keyOf(tea.KeyEsc))
	if model.mode != modeList || model.create.State() != console.DialogClosed {
		t.Error("esc should close the dialog")
	}
}

func TestModel_EditFlow(t *testing.T) {
	service := &fakeService{incidents: seed()}
	model := newTestModel(t, service, true)

	model, _ = press(t, model, runes("e"))
	if model.mode != modeEdit {
		t.Fatal("expected edit dialog")
	}
	if model.description.Value() != "disk full" {
		t.Errorf("description seeded with %q", model.description.Value())
	}

	model, _ = press(t, model, keyOf(tea.KeyTab))
	model, _ = press(t, model, keyOf(tea.KeyRight)) // New -> In Progress

	model = submit(t, model, keyOf(tea.KeyEnter))

	if len(service.updateCalls) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(service.updateCalls))
	}
	req := service.updateCalls[0]
	if req.State == nil || *req.State != models.StateInProgress {
		t.Errorf("State = %v", req.State)
	}
	if req.Priority == nil || *req.Priority != 4 {
		t.Errorf("Priority = %v, want 4", req.Priority)
	}
	if model.mode != modeList {
		t.Error("expected dialog closed after success")
	}
}

func TestModel_DeleteDeclined(t *testing.T) {
	service := &fakeService{incidents: seed()}
	model := newTestModel(t, service, true)

	model, _ = press(t, model, runes("d"))
	if model.mode != modeConfirmDelete {
		t.Fatal("expected confirmation")
	}
	if !strings.Contains(model.View(), console.DeletePrompt) {
		t.Error("expected delete prompt")
	}

	model, cmd := press(t, model, runes("n"))
	if cmd != nil {
		t.Error("declined delete must not start a call")
	}
	if model.mode != modeList || len(service.deleteCalls) != 0 {
		t.Error("declined delete must make no remote call")
	}
}

func TestModel_DeleteConfirmed(t *testing.T) {
	service := &fakeService{incidents: seed()}
	model := newTestModel(t, service, true)

	model, _ = press(t, model, runes("j"))
	model, _ = press(t, model, runes("d"))
	model = submit(t, model, runes("y"))

	if len(service.deleteCalls) != 1 || service.deleteCalls[0] != "b" {
		t.Errorf("deleteCalls = %v", service.deleteCalls)
	}
	if model.status != "Incident deleted" {
		t.Errorf("status = %q", model.status)
	}
}

func TestModel_DeleteFailure(t *testing.T) {
	failure := errors.New("connection refused")
	service := &fakeService{incidents: seed(), deleteErr: failure}
	model := newTestModel(t, service, true)

	model, _ = press(t, model, runes("d"))
	model = submit(t, model, runes("y"))

	if want := console.UserMessage(console.OpDelete, failure); model.status != want {
		t.Errorf("status = %q, want %q", model.status, want)
	}
	if !model.statusIsError {
		t.Error("expected error status")
	}
	if model.store.Len() != 2 {
		t.Error("failed delete must leave the store unchanged")
	}
}

func TestCycleLevel(t *testing.T) {
	tests := []struct {
		value, delta, want int
	}{
		{0, 1, 1},
		{0, -1, 3},
		{1, 1, 2},
		{3, 1, 1},
		{1, -1, 3},
		{2, 0, 2},
	}
	for _, tt := range tests {
		if got := cycleLevel(tt.value, tt.delta); got != tt.want {
			t.Errorf("cycleLevel(%d, %d) = %d, want %d", tt.value, tt.delta, got, tt.want)
		}
	}
}

func TestCycleState(t *testing.T) {
	if got := cycleState(models.StateNew, -1); got != models.StateClosed {
		t.Errorf("cycleState(New, -1) = %q", got)
	}
	if got := cycleState(models.StateClosed, 1); got != models.StateNew {
		t.Errorf("cycleState(Closed, 1) = %q", got)
	}
	if got := cycleState("Bogus", 1); got != models.StateNew {
		t.Errorf("cycleState(unknown) = %q", got)
	}
}
