package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/model"
)

func newTestDetector(target string, store *fakeStore, agent *fakeAgent, supp *fakeSuppressor, artifacts *fakeArtifacts, notifier *fakeNotifier) *Detector {
	return NewDetector(
		config.MonitorConfig{Target: target, Interval: time.Minute, ProbeTimeout: 2 * time.Second},
		config.AlertConfig{TTL: 24 * time.Hour, InlineLimit: 100},
		store, agent, supp, artifacts, nil, notifier,
	)
}

func TestRunOnceHealthyTargetCreatesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore()
	supp := &fakeSuppressor{allow: true}
	notifier := &fakeNotifier{}
	d := newTestDetector(srv.URL, store, &fakeAgent{}, supp, newFakeArtifacts(false), notifier)

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(store.alerts) != 0 {
		t.Fatalf("alerts created = %d, want 0", len(store.alerts))
	}
	// 정상이면 억제 키가 해제되어 다음 장애가 즉시 알림됨
	if len(supp.cleared) != 1 {
		t.Fatalf("suppression cleared %d times, want 1", len(supp.cleared))
	}
}

func TestRunOnceFailingTargetRaisesPendingAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := newFakeStore()
	notifier := &fakeNotifier{}
	agent := &fakeAgent{configured: true, response: "root cause: origin down. plan: restart origin."}
	d := newTestDetector(srv.URL, store, agent, &fakeSuppressor{allow: true}, newFakeArtifacts(false), notifier)

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("alerts created = %d, want 1", len(store.alerts))
	}

	var alert model.Alert
	for _, a := range store.alerts {
		alert = *a
	}
	if alert.Status != model.StatusPending {
		t.Fatalf("status = %s, want pending", alert.Status)
	}
	if !strings.Contains(alert.ErrorDetail, "503") {
		t.Fatalf("error detail = %q, want 503 mention", alert.ErrorDetail)
	}
	if alert.DiagnosisSummary != agent.response {
		t.Fatalf("summary = %q, want agent response", alert.DiagnosisSummary)
	}
	if alert.DiagnosisSessionID == "" {
		t.Fatalf("diagnosis session id must be set for executor reuse")
	}
	if alert.ExpiresAt.Sub(alert.DetectedAt) != 24*time.Hour {
		t.Fatalf("TTL = %s, want 24h", alert.ExpiresAt.Sub(alert.DetectedAt))
	}

	kinds := notifier.kinds()
	if len(kinds) != 1 || kinds[0] != model.EventCreated {
		t.Fatalf("notified kinds = %v, want [created]", kinds)
	}
}

func TestRunOnceDiagnosisFailureStillCreatesAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := newFakeStore()
	agent := &fakeAgent{configured: true, err: context.DeadlineExceeded}
	d := newTestDetector(srv.URL, store, agent, &fakeSuppressor{allow: true}, newFakeArtifacts(false), &fakeNotifier{})

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	for _, a := range store.alerts {
		if a.DiagnosisSummary != diagnosisFallback {
			t.Fatalf("summary = %q, want fallback", a.DiagnosisSummary)
		}
	}
}

func TestRunOnceSkipsWhenPendingAlertExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := newFakeStore()
	existing := pendingAlert("existing")
	existing.Target = srv.URL
	store.put(existing)

	d := newTestDetector(srv.URL, store, &fakeAgent{}, &fakeSuppressor{allow: true}, newFakeArtifacts(false), &fakeNotifier{})

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1 (no duplicate while pending)", len(store.alerts))
	}
}

func TestRunOnceSuppressedTargetSkipsAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := newFakeStore()
	d := newTestDetector(srv.URL, store, &fakeAgent{}, &fakeSuppressor{allow: false}, newFakeArtifacts(false), &fakeNotifier{})

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(store.alerts) != 0 {
		t.Fatalf("alerts = %d, want 0 (suppressed)", len(store.alerts))
	}
}

func TestRunOnceLongDiagnosisOverflowsToArtifacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := newFakeStore()
	artifacts := newFakeArtifacts(true)
	long := strings.Repeat("analysis ", 100) // inlineLimit(100)을 한참 초과
	agent := &fakeAgent{configured: true, response: long}
	d := newTestDetector(srv.URL, store, agent, &fakeSuppressor{allow: true}, artifacts, &fakeNotifier{})

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	for _, a := range store.alerts {
		if a.DiagnosisFullRef == "" {
			t.Fatalf("full ref must be set for oversized diagnosis")
		}
		if len([]rune(a.DiagnosisSummary)) != 100 {
			t.Fatalf("inline summary length = %d, want 100", len([]rune(a.DiagnosisSummary)))
		}
		stored, err := artifacts.Get(context.Background(), a.DiagnosisFullRef)
		if err != nil {
			t.Fatalf("artifact missing: %v", err)
		}
		if stored != long {
			t.Fatalf("stored artifact does not match full diagnosis")
		}
	}
}

func TestRunOnceExpiresOverdueAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeStore()
	stale := pendingAlert("stale")
	stale.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	store.put(stale)

	d := newTestDetector(srv.URL, store, &fakeAgent{}, &fakeSuppressor{allow: true}, newFakeArtifacts(false), &fakeNotifier{})

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if got := store.status("stale"); got != model.StatusExpired {
		t.Fatalf("status = %s, want expired", got)
	}
}
