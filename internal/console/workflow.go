// Package console implements the incident console core: the incident
// store, the create/edit/delete workflows that keep it in sync with the
// remote service, the search filter, and the dialog state machine.
package console

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cragr/snow-incident-console/internal/models"
)

// DeletePrompt is the confirmation question asked before a delete.
const DeletePrompt = "Are you sure you want to delete this incident?"

// IncidentService is the remote incident API.
type IncidentService interface {
	Lister
	CreateIncident(ctx context.Context, req models.CreateIncidentRequest) (*models.Incident, error)
	UpdateIncident(ctx context.Context, sysID string, req models.UpdateIncidentRequest) (*models.Incident, error)
	DeleteIncident(ctx context.Context, sysID string) error
}

// Scheduler runs fn once after d.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) Schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// DiscardScheduler drops scheduled work. One-shot commands that exit right
// after a mutation use it, since nothing would show the refreshed list.
type DiscardScheduler struct{}

// Schedule implements Scheduler.
func (DiscardScheduler) Schedule(time.Duration, func()) {}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Options tune a Console.
type Options struct {
	// CreateRefreshDelay is the wait between a successful create and
	// the list refresh. Reads inside this window may miss the new
	// incident if ServiceNow is slower to settle.
	CreateRefreshDelay time.Duration

	// Scheduler defaults to time.AfterFunc.
	Scheduler Scheduler

	// OnRefresh, if set, is called after every workflow-triggered
	// refresh with its result.
	OnRefresh func(err error)
}

// Console runs the mutation workflows against the remote service and
// keeps the store in sync with it.
type Console struct {
	service   IncidentService
	store     *Store
	delay     time.Duration
	scheduler Scheduler
	onRefresh func(error)
	logger    *slog.Logger
}

// New creates a Console.
func New(service IncidentService, store *Store, opts Options, logger *slog.Logger) *Console {
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = timerScheduler{}
	}
	return &Console{
		service:   service,
		store:     store,
		delay:     opts.CreateRefreshDelay,
		scheduler: scheduler,
		onRefresh: opts.OnRefresh,
		logger:    logger,
	}
}

// Store returns the incident store the workflows refresh.
func (c *Console) Store() *Store {
	return c.store
}

// CreateDraft is the create form. Zero impact or urgency means not selected.
type CreateDraft struct {
	ShortDescription string
	Impact           int
	Urgency          int
}

// Request validates the draft and builds the create payload.
func (d CreateDraft) Request() (models.CreateIncidentRequest, error) {
	if strings.TrimSpace(d.ShortDescription) == "" || d.Impact == 0 || d.Urgency == 0 {
		return models.CreateIncidentRequest{}, &ValidationError{Message: "Please fill description, impact and urgency"}
	}
	if !models.ValidLevel(d.Impact) {
		return models.CreateIncidentRequest{}, &ValidationError{Field: "impact", Message: "Impact must be High, Medium or Low"}
	}
	if !models.ValidLevel(d.Urgency) {
		return models.CreateIncidentRequest{}, &ValidationError{Field: "urgency", Message: "Urgency must be High, Medium or Low"}
	}
	return models.CreateIncidentRequest{
		ShortDescription: d.ShortDescription,
		Impact:           d.Impact,
		Urgency:          d.Urgency,
	}, nil
}

// EditDraft is the edit form seeded from an incident. Zero or empty
// fields are absent and not sent.
type EditDraft struct {
	SysID            string
	ShortDescription string
	State            string
	Priority         int
	Impact           int
	Urgency          int
}

// NewEditDraft seeds an edit form from the incident's current values.
func NewEditDraft(incident models.Incident) EditDraft {
	return EditDraft{
		SysID:            incident.SysID,
		ShortDescription: incident.ShortDescription,
		State:            incident.State,
		Priority:         incident.Priority,
		Impact:           incident.Impact,
		Urgency:          incident.Urgency,
	}
}

// Request validates the draft and builds the partial update. Priority is
// derived from impact and urgency when both are present and omitted
// otherwise.
func (d EditDraft) Request() (models.UpdateIncidentRequest, error) {
	var req models.UpdateIncidentRequest

	if d.SysID == "" {
		return req, &ValidationError{Message: "No incident selected"}
	}
	if strings.TrimSpace(d.ShortDescription) == "" {
		return req, &ValidationError{Field: "short_description", Message: "Description cannot be empty"}
	}
	description := d.ShortDescription
	req.ShortDescription = &description

	if d.State != "" {
		state := d.State
		req.State = &state
	}

	if d.Impact != 0 {
		if !models.ValidLevel(d.Impact) {
			return req, &ValidationError{Field: "impact", Message: "Impact must be High, Medium or Low"}
		}
		impact := d.Impact
		req.Impact = &impact
	}
	if d.Urgency != 0 {
		if !models.ValidLevel(d.Urgency) {
			return req, &ValidationError{Field: "urgency", Message: "Urgency must be High, Medium or Low"}
		}
		urgency := d.Urgency
		req.Urgency = &urgency
	}
	if req.Impact != nil && req.Urgency != nil {
		priority := models.ComputePriority(*req.Impact, *req.Urgency)
		req.Priority = &priority
	}

	return req, nil
}

// Create validates the draft, creates the incident and schedules a store
// refresh after the configured delay.
func (c *Console) Create(ctx context.Context, draft CreateDraft) (*models.Incident, error) {
	req, err := draft.Request()
	if err != nil {
		return nil, err
	}

	created, err := c.service.CreateIncident(ctx, req)
	if err != nil {
		c.logger.Error("create incident failed", "error", err)
		return nil, err
	}

	c.logger.Info("created incident",
		"sys_id", created.SysID,
		"number", created.Number,
		"refresh_delay", c.delay,
	)

	c.scheduler.Schedule(c.delay, func() {
		c.refresh(context.Background())
	})
	return created, nil
}

// Edit validates the draft, sends the partial update and refreshes the
// store immediately.
func (c *Console) Edit(ctx context.Context, draft EditDraft) (*models.Incident, error) {
	req, err := draft.Request()
	if err != nil {
		return nil, err
	}

	updated, err := c.service.UpdateIncident(ctx, draft.SysID, req)
	if err != nil {
		c.logger.Error("update incident failed", "sys_id", draft.SysID, "error", err)
		return nil, err
	}

	c.logger.Info("updated incident", "sys_id", draft.SysID)

	c.refresh(ctx)
	return updated, nil
}

// Delete asks confirm first; a declined delete makes no remote call and
// reports false. On success the store is refreshed immediately. On
// failure nothing was removed locally, so the incident stays listed.
func (c *Console) Delete(ctx context.Context, sysID string, confirm Confirmer) (bool, error) {
	if !confirm.Confirm(DeletePrompt) {
		c.logger.Debug("delete declined", "sys_id", sysID)
		return false, nil
	}

	if err := c.service.DeleteIncident(ctx, sysID); err != nil {
		c.logger.Error("delete incident failed", "sys_id", sysID, "error", err)
		return false, err
	}

	c.logger.Info("deleted incident", "sys_id", sysID)

	c.refresh(ctx)
	return true, nil
}

// refresh re-fetches the store after a mutation. A failed refresh does
// not fail the mutation that triggered it.
func (c *Console) refresh(ctx context.Context) {
	err := c.store.Refresh(ctx)
	if err != nil {
		c.logger.Warn("refresh after mutation failed", "error", err)
	}
	if c.onRefresh != nil {
		c.onRefresh(err)
	}
}
