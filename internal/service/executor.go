// 승인된 복구 작업 실행 서비스 정의
//
// 버스에서 실행 지시를 받아 approved → executing → completed/failed 전이를
// 수행한다. 버스가 적어도 1회 전달이므로 중복 지시가 올 수 있는데,
// MarkExecuting의 조건부 전이가 두 번째 실행을 거부한다 (멱등 처리).

package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/domain-sentry/backend/internal/bus"
	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

// executionStore - Alert 저장소 인터페이스 (executor 전용)
type executionStore interface {
	GetAlert(ctx context.Context, alertID string) (*model.Alert, error)
	MarkExecuting(ctx context.Context, alertID string) error
	FinishExecution(ctx context.Context, alertID string, status model.AlertStatus, logRef string) error
}

// artifactStore - 외부 텍스트 저장소 인터페이스 (읽기 포함)
type artifactStore interface {
	IsConfigured() bool
	Put(ctx context.Context, alertID, target, kind, body string) (string, error)
	Get(ctx context.Context, key string) (string, error)
}

// Executor - 복구 작업 실행자
type Executor struct {
	store     executionStore
	agent     agentInvoker
	artifacts artifactStore
	notifier  eventNotifier
	supp      alertSuppressor
	consumer  bus.Consumer
}

func NewExecutor(store executionStore, agent agentInvoker, artifacts artifactStore, notifier eventNotifier, supp alertSuppressor, consumer bus.Consumer) *Executor {
	return &Executor{
		store:     store,
		agent:     agent,
		artifacts: artifacts,
		notifier:  notifier,
		supp:      supp,
		consumer:  consumer,
	}
}

// Run - 버스 소비 루프 (ctx 취소 시 종료). 고루틴에서 호출할 것.
func (e *Executor) Run(ctx context.Context) {
	log.Printf("[Executor] started")
	for {
		sig, err := e.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[Executor] stopped")
				return
			}
			log.Printf("[Executor] failed to read execution signal: %v", err)
			continue
		}

		if err := e.HandleSignal(ctx, sig); err != nil {
			log.Printf("[Executor] execution failed alert=%s: %v", sig.AlertID, err)
		}
	}
}

// HandleSignal - 실행 지시 1건 처리
func (e *Executor) HandleSignal(ctx context.Context, sig bus.ExecutionSignal) error {
	// 1. approved → executing 전이 (중복 지시는 여기서 걸러짐)
	if err := e.store.MarkExecuting(ctx, sig.AlertID); err != nil {
		if errors.Is(err, db.ErrWrongStatus) || errors.Is(err, db.ErrAlreadyDecided) {
			log.Printf("[Executor] duplicate or stale signal alert=%s - skipping: %v", sig.AlertID, err)
			return nil
		}
		if errors.Is(err, db.ErrAlertNotFound) {
			log.Printf("[Executor] alert gone (expired?) alert=%s - skipping", sig.AlertID)
			return nil
		}
		return fmt.Errorf("failed to mark executing: %w", err)
	}

	alert, err := e.store.GetAlert(ctx, sig.AlertID)
	if err != nil {
		// executing은 터미널이 아니고 재전달은 중복으로 버려지므로,
		// 여기서 끝내지 못하면 Alert가 영원히 executing에 묶인다
		if finErr := e.store.FinishExecution(ctx, sig.AlertID, model.StatusFailed, ""); finErr != nil {
			log.Printf("[Executor] failed to mark failed after load error alert=%s: %v", sig.AlertID, finErr)
		} else {
			e.notifyFinished(ctx, sig.AlertID)
		}
		return fmt.Errorf("failed to load alert after marking executing: %w", err)
	}

	// 2. 같은 진단 세션으로 복구 실행 - Agent가 이전 대화 맥락을 기억.
	// 세션이 유실됐을 수 있으므로 이전 진단 전문도 프롬프트에 함께 싣는다.
	diagnosis := alert.DiagnosisSummary
	if alert.DiagnosisFullRef != "" && e.artifacts != nil && e.artifacts.IsConfigured() {
		if full, getErr := e.artifacts.Get(ctx, alert.DiagnosisFullRef); getErr == nil && full != "" {
			diagnosis = full
		}
	}
	prompt := fmt.Sprintf(
		"The remediation plan you proposed has been approved by %s. "+
			"Execute the plan for %s now and report each step with its outcome.\n\n"+
			"Prior diagnosis:\n%s",
		sig.DecidedBy, alert.Target, diagnosis,
	)

	transcript, invokeErr := e.agent.Invoke(ctx, alert.DiagnosisSessionID, prompt)

	status := model.StatusCompleted
	if invokeErr != nil {
		status = model.StatusFailed
		// 스트림 도중 끊긴 경우에도 부분 기록은 남긴다
		transcript = fmt.Sprintf("%s\n\n[execution error] %v", transcript, invokeErr)
	}

	// 3. 실행 기록 외부 저장 (best-effort)
	var logRef string
	if e.artifacts != nil && e.artifacts.IsConfigured() && transcript != "" {
		ref, putErr := e.artifacts.Put(ctx, alert.AlertID, alert.Target, "execution", transcript)
		if putErr != nil {
			log.Printf("[Executor] failed to store execution log alert=%s: %v", alert.AlertID, putErr)
		} else {
			logRef = ref
		}
	}

	// 4. executing → completed/failed 전이 (터미널, 단 한 번)
	if err := e.store.FinishExecution(ctx, alert.AlertID, status, logRef); err != nil {
		return fmt.Errorf("failed to finish execution: %w", err)
	}
	log.Printf("[Executor] execution finished alert=%s status=%s", alert.AlertID, status)

	// 5. 완료면 억제 키 해제 - 복구 후 재발은 새 Alert
	if status == model.StatusCompleted && e.supp != nil {
		if err := e.supp.Clear(ctx, alert.Target); err != nil {
			log.Printf("[Executor] failed to clear suppression target=%s: %v", alert.Target, err)
		}
	}

	e.notifyFinished(ctx, alert.AlertID)
	return nil
}

// notifyFinished - 터미널 상태가 반영된 Alert를 다시 읽어 completed 이벤트 전파
func (e *Executor) notifyFinished(ctx context.Context, alertID string) {
	if e.notifier == nil {
		return
	}
	finished, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		log.Printf("[Executor] failed to reload alert for notification alert=%s: %v", alertID, err)
		return
	}
	e.notifier.Notify(ctx, *finished, model.EventCompleted)
}
