package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/domain-sentry/backend/internal/model"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		limit         int
		wantTruncated bool
	}{
		{name: "under-limit", input: "short", limit: 100, wantTruncated: false},
		{name: "exactly-limit", input: strings.Repeat("a", 50), limit: 50, wantTruncated: false},
		{name: "over-limit", input: strings.Repeat("a", 200), limit: 50, wantTruncated: true},
		{name: "multibyte-over-limit", input: strings.Repeat("진단", 100), limit: 50, wantTruncated: true},
		{name: "zero-limit-passthrough", input: strings.Repeat("a", 200), limit: 0, wantTruncated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Truncate(tt.input, tt.limit)
			if truncated != tt.wantTruncated {
				t.Fatalf("truncated = %v, want %v", truncated, tt.wantTruncated)
			}
			if tt.limit > 0 && len([]rune(got)) > tt.limit {
				t.Fatalf("result length %d exceeds limit %d", len([]rune(got)), tt.limit)
			}
			if !truncated && got != tt.input {
				t.Fatalf("unmodified input expected, got %q", got)
			}
			if truncated && !strings.HasSuffix(got, truncationMarker) {
				t.Fatalf("truncated result missing marker: %q", got)
			}
		})
	}
}

func TestNotifyFanOutSurvivesChannelFailure(t *testing.T) {
	failing := &fakeChannel{name: "broken", limit: 100, err: errors.New("channel down")}
	healthy := &fakeChannel{name: "healthy", limit: 100}
	n := NewNotifier(newFakeArtifacts(false), "", "", failing, healthy)

	alert := pendingAlert("n1")
	n.Notify(context.Background(), alert, model.EventCreated)

	if len(failing.received) != 1 {
		t.Fatalf("failing channel received %d, want 1", len(failing.received))
	}
	if len(healthy.received) != 1 {
		t.Fatalf("healthy channel received %d, want 1 (must not be blocked by failure)", len(healthy.received))
	}
}

func TestNotifyTruncatesPerChannelLimit(t *testing.T) {
	small := &fakeChannel{name: "small", limit: 40}
	large := &fakeChannel{name: "large", limit: 10000}
	n := NewNotifier(newFakeArtifacts(false), "", "", small, large)

	alert := pendingAlert("n2")
	alert.DiagnosisSummary = strings.Repeat("x", 500)
	n.Notify(context.Background(), alert, model.EventCreated)

	got := small.received[0]
	if !got.Truncated {
		t.Fatalf("small channel notification should be truncated")
	}
	if len([]rune(got.Summary)) > 40 {
		t.Fatalf("summary length %d exceeds channel limit 40", len([]rune(got.Summary)))
	}

	if large.received[0].Truncated {
		t.Fatalf("large channel notification should not be truncated")
	}
	if large.received[0].Summary != alert.DiagnosisSummary {
		t.Fatalf("large channel should receive the full summary")
	}
}

func TestNotifyAttachesArtifactLinks(t *testing.T) {
	artifacts := newFakeArtifacts(true)
	ch := &fakeChannel{name: "ch", limit: 100}
	n := NewNotifier(artifacts, "https://sentry.example.com", "link-secret", ch)

	alert := pendingAlert("n3")
	alert.DiagnosisFullRef = "alerts/diagnosis/n3.md"
	n.Notify(context.Background(), alert, model.EventCreated)

	got := ch.received[0]
	if got.FullURL != "https://artifacts.test/alerts/diagnosis/n3.md" {
		t.Fatalf("full URL = %q", got.FullURL)
	}
	if !got.Truncated {
		t.Fatalf("notification with full ref must be flagged truncated")
	}

	// 링크는 GET /alerts/:id/decide가 검증하는 토큰과 같은 방식으로 서명됨
	wantApprove := fmt.Sprintf("https://sentry.example.com/alerts/n3/decide?action=approve&token=%s",
		model.DecisionLinkToken("link-secret", "n3", model.ActionApprove))
	if got.ApproveURL != wantApprove {
		t.Fatalf("approve URL = %q, want %q", got.ApproveURL, wantApprove)
	}
	if !strings.Contains(got.RejectURL, "action=reject&token=") {
		t.Fatalf("reject URL = %q", got.RejectURL)
	}
}

func TestNotifyOmitsDecisionLinksWithoutSecret(t *testing.T) {
	ch := &fakeChannel{name: "ch", limit: 100}
	n := NewNotifier(newFakeArtifacts(false), "https://sentry.example.com", "", ch)

	n.Notify(context.Background(), pendingAlert("n4"), model.EventCreated)

	got := ch.received[0]
	if got.ApproveURL != "" || got.RejectURL != "" {
		t.Fatalf("unverifiable links must be omitted: approve=%q reject=%q", got.ApproveURL, got.RejectURL)
	}
}
