package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/domain-sentry/backend/internal/bus"
	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

func pendingAlert(id string) model.Alert {
	now := time.Now().UTC()
	return model.Alert{
		AlertID:            id,
		Target:             "example.com",
		DetectedAt:         now,
		ErrorDetail:        "HTTP probe returned status 503",
		Status:             model.StatusPending,
		DiagnosisSessionID: "session-" + id,
		DiagnosisSummary:   "likely origin outage",
		ExpiresAt:          now.Add(24 * time.Hour),
	}
}

func TestDecideApprovePublishesExecutionSignal(t *testing.T) {
	store := newFakeStore()
	store.put(pendingAlert("a1"))
	localBus := bus.NewLocalBus()
	notifier := &fakeNotifier{}
	supp := &fakeSuppressor{allow: true}

	svc := NewApprovalService(store, localBus, notifier, supp)

	alert, err := svc.Decide(context.Background(), "a1", model.ActionApprove, "alice", "looks safe")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if alert.Status != model.StatusApproved {
		t.Fatalf("status = %s, want approved", alert.Status)
	}
	if alert.DecisionBy != "alice" {
		t.Fatalf("decision_by = %s, want alice", alert.DecisionBy)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sig, err := localBus.Read(ctx)
	if err != nil {
		t.Fatalf("bus read error = %v", err)
	}
	if sig.AlertID != "a1" || sig.DecidedBy != "alice" {
		t.Fatalf("unexpected signal: %+v", sig)
	}

	kinds := notifier.kinds()
	if len(kinds) != 1 || kinds[0] != model.EventDecided {
		t.Fatalf("notified kinds = %v, want [decided]", kinds)
	}
}

// failingBus - 발행이 항상 실패하는 Publisher 대역
type failingBus struct {
	err error
}

func (b *failingBus) Publish(ctx context.Context, sig bus.ExecutionSignal) error { return b.err }
func (b *failingBus) Close() error                                               { return nil }

func TestDecideApprovePublishFailureStillRecordsDecision(t *testing.T) {
	store := newFakeStore()
	store.put(pendingAlert("a6"))
	notifier := &fakeNotifier{}

	svc := NewApprovalService(store, &failingBus{err: errors.New("broker unavailable")}, notifier, &fakeSuppressor{allow: true})

	// 발행 실패는 호출자에게 에러로 새지 않음 - 결정은 이미 기록됐고 스윕이 재발행
	alert, err := svc.Decide(context.Background(), "a6", model.ActionApprove, "alice", "")
	if err != nil {
		t.Fatalf("Decide() error = %v, want nil", err)
	}
	if alert.Status != model.StatusApproved {
		t.Fatalf("status = %s, want approved", alert.Status)
	}

	kinds := notifier.kinds()
	if len(kinds) != 1 || kinds[0] != model.EventDecided {
		t.Fatalf("notified kinds = %v, want [decided]", kinds)
	}
}

func TestRepublishStuckApproved(t *testing.T) {
	store := newFakeStore()

	stale := pendingAlert("a7")
	stale.Status = model.StatusApproved
	stale.DecisionBy = "alice"
	staleAt := time.Now().UTC().Add(-2 * time.Minute)
	stale.DecisionAt = &staleAt
	store.put(stale)

	fresh := pendingAlert("a8")
	fresh.Status = model.StatusApproved
	freshAt := time.Now().UTC().Add(-10 * time.Second)
	fresh.DecisionAt = &freshAt
	store.put(fresh)

	store.put(pendingAlert("a9"))

	localBus := bus.NewLocalBus()
	svc := NewApprovalService(store, localBus, &fakeNotifier{}, &fakeSuppressor{allow: true})

	count, err := svc.RepublishStuck(context.Background())
	if err != nil {
		t.Fatalf("RepublishStuck() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("republished = %d, want 1 (fresh approved and pending must be skipped)", count)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sig, err := localBus.Read(ctx)
	if err != nil {
		t.Fatalf("bus read error = %v", err)
	}
	if sig.AlertID != "a7" || sig.DecidedBy != "alice" {
		t.Fatalf("unexpected signal: %+v", sig)
	}
}

func TestDecideRejectClearsSuppression(t *testing.T) {
	store := newFakeStore()
	store.put(pendingAlert("a2"))
	supp := &fakeSuppressor{allow: true}

	svc := NewApprovalService(store, bus.NewLocalBus(), &fakeNotifier{}, supp)

	alert, err := svc.Decide(context.Background(), "a2", model.ActionReject, "bob", "false positive")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if alert.Status != model.StatusRejected {
		t.Fatalf("status = %s, want rejected", alert.Status)
	}
	if len(supp.cleared) != 1 || supp.cleared[0] != "example.com" {
		t.Fatalf("cleared targets = %v, want [example.com]", supp.cleared)
	}
}

func TestDecideConcurrentAtMostOneWins(t *testing.T) {
	store := newFakeStore()
	store.put(pendingAlert("a3"))
	svc := NewApprovalService(store, bus.NewLocalBus(), &fakeNotifier{}, &fakeSuppressor{allow: true})

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := model.ActionApprove
			if i%2 == 1 {
				action = model.ActionReject
			}
			_, errs[i] = svc.Decide(context.Background(), "a3", action, "racer", "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, db.ErrAlreadyDecided) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestDecideExpiredAlertReturnsNotFound(t *testing.T) {
	store := newFakeStore()
	a := pendingAlert("a4")
	a.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	store.put(a)

	svc := NewApprovalService(store, bus.NewLocalBus(), &fakeNotifier{}, &fakeSuppressor{allow: true})

	_, err := svc.Decide(context.Background(), "a4", model.ActionApprove, "alice", "")
	if !errors.Is(err, db.ErrAlertNotFound) {
		t.Fatalf("error = %v, want ErrAlertNotFound", err)
	}
}

func TestDecideUnknownAlertReturnsNotFound(t *testing.T) {
	svc := NewApprovalService(newFakeStore(), bus.NewLocalBus(), &fakeNotifier{}, &fakeSuppressor{allow: true})

	_, err := svc.Decide(context.Background(), "missing", model.ActionReject, "alice", "")
	if !errors.Is(err, db.ErrAlertNotFound) {
		t.Fatalf("error = %v, want ErrAlertNotFound", err)
	}
}
