package template

import (
	"testing"
	"time"

	"github.com/domain-sentry/backend/internal/model"
)

func TestRenderBody(t *testing.T) {
	detectedAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	alert := AlertData{
		ID:         "a-1",
		Target:     "example.com",
		Status:     "pending",
		Error:      "HTTP probe returned status 503",
		DetectedAt: detectedAt,
		Summary:    "origin down",
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "basic-substitution",
			body: `{"id":"{{alert.id}}","target":"{{alert.target}}"}`,
			want: `{"id":"a-1","target":"example.com"}`,
		},
		{
			name: "timestamp-rfc3339",
			body: "detected at {{alert.detected_at}}",
			want: "detected at 2025-03-14T09:30:00Z",
		},
		{
			name: "event-kind",
			body: "event={{event.kind}} status={{alert.status}}",
			want: "event=created status=pending",
		},
		{
			name: "unknown-variable-left-alone",
			body: "{{alert.target}} {{alert.nonexistent}}",
			want: "example.com {{alert.nonexistent}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderBody(tt.body, &alert, "created"); got != tt.want {
				t.Fatalf("RenderBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBodyNilAlert(t *testing.T) {
	got := RenderBody("id={{alert.id}} kind={{event.kind}}", nil, "decided")
	if got != "id= kind=decided" {
		t.Fatalf("RenderBody() = %q", got)
	}
}

func TestAlertDataFromModel(t *testing.T) {
	alert := model.Alert{
		AlertID:          "a-2",
		Target:           "example.com",
		Status:           model.StatusApproved,
		ErrorDetail:      "DNS resolution failed",
		DiagnosisSummary: "registrar issue",
		DecisionBy:       "alice",
	}

	data := AlertDataFromModel(alert)
	if data.ID != "a-2" || data.Status != "approved" || data.DecisionBy != "alice" {
		t.Fatalf("unexpected data: %+v", data)
	}
}
