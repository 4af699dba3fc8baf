// 승인/기각 처리 서비스 정의
//
// 결정은 저장소의 조건부 업데이트 하나로만 기록되므로, 같은 Alert에 대한
// 동시 승인/기각 시도는 최대 하나만 성공한다. 나머지는 db.ErrAlreadyDecided.

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/domain-sentry/backend/internal/bus"
	"github.com/domain-sentry/backend/internal/model"
)

// republishAfter - 결정 후 이 시간이 지나도록 executing으로 넘어가지 않으면
// 실행 지시가 유실된 것으로 본다
const republishAfter = time.Minute

// decisionStore - Alert 저장소 인터페이스 (approval 전용)
type decisionStore interface {
	Decide(ctx context.Context, alertID string, status model.AlertStatus, by, comment string, at time.Time) (*model.Alert, error)
	GetAlert(ctx context.Context, alertID string) (*model.Alert, error)
	ListStuckApproved(ctx context.Context, olderThan time.Duration) ([]model.Alert, error)
}

// ApprovalService - 승인/기각 비즈니스 로직
type ApprovalService struct {
	store    decisionStore
	bus      bus.Publisher
	notifier eventNotifier
	supp     alertSuppressor
}

func NewApprovalService(store decisionStore, pub bus.Publisher, notifier eventNotifier, supp alertSuppressor) *ApprovalService {
	return &ApprovalService{
		store:    store,
		bus:      pub,
		notifier: notifier,
		supp:     supp,
	}
}

// Decide - 결정 기록 후 승인이면 실행 시그널 발행
//
// 반환 에러:
//   - db.ErrAlertNotFound: alert_id 없음 또는 만료됨
//   - db.ErrAlreadyDecided: 이미 결정됨 (동시 요청의 패자 포함)
func (s *ApprovalService) Decide(ctx context.Context, alertID string, action model.DecisionAction, actor, comment string) (*model.Alert, error) {
	status, ok := model.StatusForAction(action)
	if !ok {
		return nil, fmt.Errorf("unknown decision action: %s", action)
	}

	decidedAt := time.Now().UTC()
	alert, err := s.store.Decide(ctx, alertID, status, actor, comment, decidedAt)
	if err != nil {
		return nil, err
	}
	log.Printf("[Approval] decision recorded alert=%s action=%s by=%s", alertID, action, actor)

	// 승인이면 Executor에 실행 지시 발행 (fire-and-forget)
	// 발행 실패는 로그만 남긴다 - 결정은 이미 기록됐고,
	// approved인 채 남은 Alert는 RepublishStuck 스윕이 다시 발행한다
	if status == model.StatusApproved {
		sig := bus.ExecutionSignal{
			AlertID:   alertID,
			DecidedBy: actor,
			DecidedAt: decidedAt,
		}
		if err := s.bus.Publish(ctx, sig); err != nil {
			log.Printf("[Approval] failed to publish execution signal alert=%s (sweep will retry): %v", alertID, err)
		}
	}

	// 기각이면 억제 키 해제 - 재감지 시 새 Alert 생성 가능
	if status == model.StatusRejected && s.supp != nil {
		if err := s.supp.Clear(ctx, alert.Target); err != nil {
			log.Printf("[Approval] failed to clear suppression target=%s: %v", alert.Target, err)
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, *alert, model.EventDecided)
	}
	return alert, nil
}

// RepublishStuck - approved인 채 방치된 Alert의 실행 지시 재발행
//
// MarkExecuting의 조건부 전이가 중복 지시를 걸러주므로 재발행은 멱등하다.
func (s *ApprovalService) RepublishStuck(ctx context.Context) (int, error) {
	stuck, err := s.store.ListStuckApproved(ctx, republishAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck approved alerts: %w", err)
	}

	republished := 0
	for _, a := range stuck {
		sig := bus.ExecutionSignal{AlertID: a.AlertID, DecidedBy: a.DecisionBy}
		if a.DecisionAt != nil {
			sig.DecidedAt = *a.DecisionAt
		}
		if err := s.bus.Publish(ctx, sig); err != nil {
			log.Printf("[Approval] failed to republish execution signal alert=%s: %v", a.AlertID, err)
			continue
		}
		republished++
	}
	if republished > 0 {
		log.Printf("[Approval] republished execution signals count=%d", republished)
	}
	return republished, nil
}

// StartRepublisher - 재발행 스윕 루프 (고루틴에서 호출할 것)
func (s *ApprovalService) StartRepublisher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RepublishStuck(ctx); err != nil {
				log.Printf("[Approval] republish sweep failed: %v", err)
			}
		}
	}
}
