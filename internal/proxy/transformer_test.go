package proxy

import (
	"testing"

	"github.com/cragr/snow-incident-console/internal/console"
	"github.com/cragr/snow-incident-console/internal/models"
)

func TestStateLabel(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"1", models.StateNew},
		{"2", models.StateInProgress},
		{"3", models.StateOnHold},
		{"6", models.StateResolved},
		{"7", models.StateClosed},
		{"8", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := StateLabel(tt.code); got != tt.want {
				t.Errorf("StateLabel(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestStateCode(t *testing.T) {
	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{"New", "1", true},
		{"in progress", "2", true},
		{"On Hold", "3", true},
		{"Resolved", "6", true},
		{"CLOSED", "7", true},
		{"6", "6", true},
		{"8", "8", true},
		{"Escalated", "", false},
		{"-1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := StateCode(tt.label)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("StateCode(%q) = %q, %v; want %q, %v", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToIncident(t *testing.T) {
	got := ToIncident(models.ServiceNowResult{
		SysID:            "abc",
		Number:           "INC0010001",
		ShortDescription: "disk full",
		State:            "2",
		Impact:           "1",
		Urgency:          "2 - Medium",
		Priority:         "",
	})

	want := models.Incident{
		SysID:            "abc",
		Number:           "INC0010001",
		ShortDescription: "disk full",
		State:            models.StateInProgress,
		Impact:           1,
		Urgency:          2,
		Priority:         0,
	}

	if got != want {
		t.Errorf("ToIncident() = %+v, want %+v", got, want)
	}
}

func TestToServiceNowIncident(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateIncidentRequest
		wantErr bool
	}{
		{"valid", models.CreateIncidentRequest{ShortDescription: "x", Impact: 1, Urgency: 3}, false},
		{"blank description", models.CreateIncidentRequest{ShortDescription: "  ", Impact: 1, Urgency: 3}, true},
		{"impact out of range", models.CreateIncidentRequest{ShortDescription: "x", Impact: 4, Urgency: 3}, true},
		{"missing urgency", models.CreateIncidentRequest{ShortDescription: "x", Impact: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToServiceNowIncident(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToServiceNowIncident() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (got.Impact != "1" || got.Urgency != "3") {
				t.Errorf("unexpected payload %+v", got)
			}
		})
	}
}

func TestToUpdatePayload(t *testing.T) {
	ptr := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	tests := []struct {
		name    string
		req     models.UpdateIncidentRequest
		want    models.ServiceNowUpdatePayload
		wantErr bool
	}{
		{
			name: "all fields",
			req: models.UpdateIncidentRequest{
				ShortDescription: ptr("updated"),
				State:            ptr(models.StateResolved),
				Impact:           num(2),
				Urgency:          num(3),
				Priority:         num(4),
			},
			want: models.ServiceNowUpdatePayload{
				ShortDescription: "updated",
				State:            "6",
				Impact:           "2",
				Urgency:          "3",
				Priority:         "4",
			},
		},
		{
			name: "state only",
			req:  models.UpdateIncidentRequest{State: ptr("On Hold")},
			want: models.ServiceNowUpdatePayload{State: "3"},
		},
		{name: "empty description", req: models.UpdateIncidentRequest{ShortDescription: ptr("")}, wantErr: true},
		{name: "priority too high", req: models.UpdateIncidentRequest{Priority: num(6)}, wantErr: true},
		{name: "urgency zero", req: models.UpdateIncidentRequest{Urgency: num(0)}, wantErr: true},
		{name: "nothing to update", req: models.UpdateIncidentRequest{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUpdatePayload(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToUpdatePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ToUpdatePayload() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEditRoundTrip_UnmappedState(t *testing.T) {
	listed := ToIncident(models.ServiceNowResult{
		SysID:            "abc",
		Number:           "INC0010002",
		ShortDescription: "printer jam",
		State:            "8",
		Impact:           "2",
		Urgency:          "2",
		Priority:         "3",
	})

	draft := console.NewEditDraft(listed)
	draft.ShortDescription = "printer jam on floor 3"

	req, err := draft.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	payload, err := ToUpdatePayload(req)
	if err != nil {
		t.Fatalf("ToUpdatePayload() error = %v", err)
	}
	if payload.State != "8" {
		t.Errorf("State = %q, want the listed code unchanged", payload.State)
	}
	if payload.ShortDescription != "printer jam on floor 3" {
		t.Errorf("ShortDescription = %q", payload.ShortDescription)
	}
}
