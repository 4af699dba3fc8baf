package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

// fakeStore - 조건부 전이를 뮤텍스로 흉내내는 인메모리 Alert 저장소
type fakeStore struct {
	mu     sync.Mutex
	alerts map[string]*model.Alert
	now    func() time.Time
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alerts: make(map[string]*model.Alert),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *fakeStore) put(alert model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := alert
	s.alerts[alert.AlertID] = &a
}

func (s *fakeStore) CreateAlert(ctx context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.AlertID]; ok {
		return fmt.Errorf("duplicate alert_id: %s", alert.AlertID)
	}
	a := alert
	s.alerts[alert.AlertID] = &a
	return nil
}

// setGetErr - 이후의 모든 GetAlert를 지정한 에러로 실패시킴 (nil이면 복구)
func (s *fakeStore) setGetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

func (s *fakeStore) GetAlert(ctx context.Context, alertID string) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	a, ok := s.alerts[alertID]
	if !ok || !a.ExpiresAt.After(s.now()) {
		return nil, db.ErrAlertNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeStore) HasPendingAlert(ctx context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.Target == target && a.Status == model.StatusPending && a.ExpiresAt.After(s.now()) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Decide(ctx context.Context, alertID string, status model.AlertStatus, by, comment string, at time.Time) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok || !a.ExpiresAt.After(s.now()) {
		return nil, db.ErrAlertNotFound
	}
	if a.Status != model.StatusPending {
		return nil, db.ErrAlreadyDecided
	}
	a.Status = status
	a.DecisionBy = by
	a.DecisionComment = comment
	decidedAt := at
	a.DecisionAt = &decidedAt
	copied := *a
	return &copied, nil
}

func (s *fakeStore) MarkExecuting(ctx context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok || !a.ExpiresAt.After(s.now()) {
		return db.ErrAlertNotFound
	}
	if a.Status != model.StatusApproved {
		return db.ErrWrongStatus
	}
	a.Status = model.StatusExecuting
	return nil
}

func (s *fakeStore) FinishExecution(ctx context.Context, alertID string, status model.AlertStatus, logRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return db.ErrAlertNotFound
	}
	if a.Status != model.StatusExecuting {
		return db.ErrWrongStatus
	}
	a.Status = status
	a.ExecutionLogRef = logRef
	return nil
}

func (s *fakeStore) ListStuckApproved(ctx context.Context, olderThan time.Duration) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-olderThan)
	var stuck []model.Alert
	for _, a := range s.alerts {
		if a.Status == model.StatusApproved && a.DecisionAt != nil && !a.DecisionAt.After(cutoff) && a.ExpiresAt.After(s.now()) {
			stuck = append(stuck, *a)
		}
	}
	return stuck, nil
}

func (s *fakeStore) ExpireOverdue(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired int64
	for _, a := range s.alerts {
		if a.Status == model.StatusPending && !a.ExpiresAt.After(s.now()) {
			a.Status = model.StatusExpired
			expired++
		}
	}
	return expired, nil
}

func (s *fakeStore) status(alertID string) model.AlertStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.alerts[alertID]; ok {
		return a.Status
	}
	return ""
}

// fakeAgent - Agent 클라이언트 대역
type fakeAgent struct {
	mu         sync.Mutex
	configured bool
	response   string
	err        error
	sessions   []string
	prompts    []string
}

func (a *fakeAgent) IsConfigured() bool { return a.configured }

func (a *fakeAgent) Invoke(ctx context.Context, sessionID, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, sessionID)
	a.prompts = append(a.prompts, prompt)
	return a.response, a.err
}

// fakeSuppressor - 억제기 대역
type fakeSuppressor struct {
	mu      sync.Mutex
	allow   bool
	cleared []string
}

func (s *fakeSuppressor) Allow(ctx context.Context, target string, ttl time.Duration) (bool, error) {
	return s.allow, nil
}

func (s *fakeSuppressor) Clear(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, target)
	return nil
}

// fakeArtifacts - 외부 저장소 대역
type fakeArtifacts struct {
	mu         sync.Mutex
	configured bool
	objects    map[string]string
}

func newFakeArtifacts(configured bool) *fakeArtifacts {
	return &fakeArtifacts{configured: configured, objects: make(map[string]string)}
}

func (a *fakeArtifacts) IsConfigured() bool { return a.configured }

func (a *fakeArtifacts) Put(ctx context.Context, alertID, target, kind, body string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := fmt.Sprintf("alerts/%s/%s.md", kind, alertID)
	a.objects[key] = body
	return key, nil
}

func (a *fakeArtifacts) Get(ctx context.Context, key string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	body, ok := a.objects[key]
	if !ok {
		return "", fmt.Errorf("artifact not found: %s", key)
	}
	return body, nil
}

func (a *fakeArtifacts) PresignURL(ctx context.Context, key string) (string, error) {
	return "https://artifacts.test/" + key, nil
}

// notifiedEvent - fakeNotifier가 기록하는 이벤트 1건
type notifiedEvent struct {
	alert model.Alert
	kind  model.AlertEventKind
}

// fakeNotifier - 알림 전파 대역
type fakeNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

func (n *fakeNotifier) Notify(ctx context.Context, alert model.Alert, kind model.AlertEventKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{alert: alert, kind: kind})
}

func (n *fakeNotifier) kinds() []model.AlertEventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []model.AlertEventKind
	for _, e := range n.events {
		out = append(out, e.kind)
	}
	return out
}

// fakeChannel - 알림 채널 대역 (Notifier 테스트용)
type fakeChannel struct {
	mu       sync.Mutex
	name     string
	limit    int
	err      error
	received []model.AlertNotification
}

func (c *fakeChannel) Name() string      { return c.name }
func (c *fakeChannel) SummaryLimit() int { return c.limit }

func (c *fakeChannel) record(n model.AlertNotification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, n)
	return c.err
}

func (c *fakeChannel) NotifyCreated(ctx context.Context, n model.AlertNotification) error {
	return c.record(n)
}

func (c *fakeChannel) NotifyDecided(ctx context.Context, n model.AlertNotification) error {
	return c.record(n)
}

func (c *fakeChannel) NotifyCompleted(ctx context.Context, n model.AlertNotification) error {
	return c.record(n)
}
