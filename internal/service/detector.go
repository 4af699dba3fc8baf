// 대상 도메인 헬스체크 및 Alert 생성 서비스 정의
//
// 주기 동작 (Start의 ticker 루프):
//   1. 만료 스윕 (pending인 채 TTL이 지난 Alert 정리)
//   2. 헬스체크 (DNS 조회 + HTTPS 요청)
//   3. 장애 시: 중복 억제 확인 → AI 진단 → Alert 저장 → 지식 베이스 색인 → 알림
//
// 진단 실패는 감지를 막지 않는다. 요약에 실패 사유를 적고 계속 진행한다.

package service

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/model"
)

// diagnosisFallback - Agent 호출 실패 시의 요약 본문
const diagnosisFallback = "AI diagnosis unavailable. Review the error detail and investigate manually before approving remediation."

// detectorStore - Alert 저장소 인터페이스 (detector 전용)
type detectorStore interface {
	CreateAlert(ctx context.Context, alert model.Alert) error
	HasPendingAlert(ctx context.Context, target string) (bool, error)
	ExpireOverdue(ctx context.Context, retention time.Duration) (int64, error)
}

// agentInvoker - 진단/복구 Agent 인터페이스
type agentInvoker interface {
	IsConfigured() bool
	Invoke(ctx context.Context, sessionID, prompt string) (string, error)
}

// alertSuppressor - 중복 알림 억제 인터페이스
type alertSuppressor interface {
	Allow(ctx context.Context, target string, ttl time.Duration) (bool, error)
	Clear(ctx context.Context, target string) error
}

// artifactWriter - 외부 텍스트 저장소 인터페이스
type artifactWriter interface {
	IsConfigured() bool
	Put(ctx context.Context, alertID, target, kind, body string) (string, error)
}

// knowledgeBase - 과거 사례 색인/검색 인터페이스 (nil 허용)
type knowledgeBase interface {
	Index(ctx context.Context, alert model.Alert) error
	SimilarContext(ctx context.Context, text string) string
}

// eventNotifier - 라이프사이클 이벤트 전파 인터페이스
type eventNotifier interface {
	Notify(ctx context.Context, alert model.Alert, kind model.AlertEventKind)
}

// Detector - 헬스체크 및 Alert 생성 서비스
type Detector struct {
	target       string
	interval     time.Duration
	probeTimeout time.Duration
	ttl          time.Duration
	inlineLimit  int

	store     detectorStore
	agent     agentInvoker
	supp      alertSuppressor
	artifacts artifactWriter
	knowledge knowledgeBase
	notifier  eventNotifier

	httpClient *http.Client
	resolver   *net.Resolver
}

func NewDetector(
	monitorCfg config.MonitorConfig,
	alertCfg config.AlertConfig,
	store detectorStore,
	agent agentInvoker,
	supp alertSuppressor,
	artifacts artifactWriter,
	knowledge knowledgeBase,
	notifier eventNotifier,
) *Detector {
	return &Detector{
		target:       monitorCfg.Target,
		interval:     monitorCfg.Interval,
		probeTimeout: monitorCfg.ProbeTimeout,
		ttl:          alertCfg.TTL,
		inlineLimit:  alertCfg.InlineLimit,
		store:        store,
		agent:        agent,
		supp:         supp,
		artifacts:    artifacts,
		knowledge:    knowledge,
		notifier:     notifier,
		httpClient: &http.Client{
			Timeout: monitorCfg.ProbeTimeout,
		},
		resolver: net.DefaultResolver,
	}
}

// Start - ticker 루프 시작 (ctx 취소 시 종료). 고루틴에서 호출할 것.
func (d *Detector) Start(ctx context.Context) {
	if d.target == "" {
		log.Printf("[Detector] MONITOR_TARGET not set - detector disabled")
		return
	}

	log.Printf("[Detector] started target=%s interval=%s", d.target, d.interval)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// 기동 직후 1회 실행
	if err := d.RunOnce(ctx); err != nil {
		log.Printf("[Detector] run failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Detector] stopped")
			return
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				log.Printf("[Detector] run failed: %v", err)
			}
		}
	}
}

// RunOnce - 만료 스윕 + 헬스체크 1회 수행
func (d *Detector) RunOnce(ctx context.Context) error {
	// 1. 만료 스윕 (만료 후 TTL만큼 더 보관하고 삭제)
	if expired, err := d.store.ExpireOverdue(ctx, d.ttl); err != nil {
		log.Printf("[Detector] expiry sweep failed: %v", err)
	} else if expired > 0 {
		log.Printf("[Detector] expired %d overdue alerts", expired)
	}

	// 2. 헬스체크
	probeErr := d.Probe(ctx)
	if probeErr == nil {
		// 정상 - 억제 키 해제해서 다음 장애는 즉시 알림
		if err := d.supp.Clear(ctx, d.target); err != nil {
			log.Printf("[Detector] failed to clear suppression: %v", err)
		}
		return nil
	}

	log.Printf("[Detector] probe failed target=%s: %v", d.target, probeErr)
	return d.raise(ctx, probeErr.Error())
}

// Probe - DNS 조회 후 HTTPS 요청으로 대상 상태 확인
func (d *Detector) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	host := d.target
	if strings.Contains(host, "://") {
		if u := strings.SplitN(host, "://", 2); len(u) == 2 {
			host = strings.SplitN(u[1], "/", 2)[0]
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if _, err := d.resolver.LookupHost(probeCtx, host); err != nil {
		return fmt.Errorf("DNS resolution failed: %v", err)
	}

	url := d.target
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	req, err := http.NewRequestWithContext(probeCtx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %v", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP probe failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP probe returned status %d", resp.StatusCode)
	}
	return nil
}

// raise - 장애 1건에 대해 Alert 생성 파이프라인 수행
func (d *Detector) raise(ctx context.Context, errorDetail string) error {
	// 3. 중복 억제: DB의 미결정 Alert + 쿨다운 키
	pending, err := d.store.HasPendingAlert(ctx, d.target)
	if err != nil {
		return fmt.Errorf("failed to check pending alerts: %w", err)
	}
	if pending {
		log.Printf("[Detector] pending alert exists target=%s - skipping", d.target)
		return nil
	}

	allowed, err := d.supp.Allow(ctx, d.target, d.ttl)
	if err != nil {
		// 억제기 장애는 알림 누락보다 중복이 낫다 - 계속 진행
		log.Printf("[Detector] suppressor unavailable: %v", err)
	} else if !allowed {
		log.Printf("[Detector] suppressed target=%s - alert already in flight", d.target)
		return nil
	}

	now := time.Now().UTC()
	alert := model.Alert{
		AlertID:            uuid.New().String(),
		Target:             d.target,
		DetectedAt:         now,
		ErrorDetail:        errorDetail,
		Status:             model.StatusPending,
		DiagnosisSessionID: uuid.New().String(),
		ExpiresAt:          now.Add(d.ttl),
	}

	// 4. AI 진단 (실패해도 Alert 생성은 계속)
	d.diagnose(ctx, &alert)

	// 5. 저장
	if err := d.store.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	log.Printf("[Detector] alert created alert=%s target=%s", alert.AlertID, alert.Target)

	// 6. 지식 베이스 색인 (best-effort)
	if d.knowledge != nil {
		if err := d.knowledge.Index(ctx, alert); err != nil {
			log.Printf("[Detector] knowledge indexing failed alert=%s: %v", alert.AlertID, err)
		}
	}

	// 7. 알림
	d.notifier.Notify(ctx, alert, model.EventCreated)
	return nil
}

// diagnose - Agent 진단 호출 후 요약/전문 참조 필드 채움
func (d *Detector) diagnose(ctx context.Context, alert *model.Alert) {
	if d.agent == nil || !d.agent.IsConfigured() {
		alert.DiagnosisSummary = diagnosisFallback
		return
	}

	prompt := d.buildDiagnosisPrompt(ctx, alert)
	full, err := d.agent.Invoke(ctx, alert.DiagnosisSessionID, prompt)
	if err != nil || strings.TrimSpace(full) == "" {
		log.Printf("[Detector] diagnosis failed alert=%s: %v", alert.AlertID, err)
		alert.DiagnosisSummary = diagnosisFallback
		return
	}

	// 한도 초과 시 전문은 외부 저장, 요약만 인라인 보관
	runes := []rune(full)
	if len(runes) > d.inlineLimit && d.artifacts != nil && d.artifacts.IsConfigured() {
		ref, putErr := d.artifacts.Put(ctx, alert.AlertID, alert.Target, "diagnosis", full)
		if putErr != nil {
			log.Printf("[Detector] failed to store full diagnosis alert=%s: %v", alert.AlertID, putErr)
		} else {
			alert.DiagnosisFullRef = ref
		}
	}
	if len(runes) > d.inlineLimit {
		alert.DiagnosisSummary = string(runes[:d.inlineLimit])
	} else {
		alert.DiagnosisSummary = full
	}
}

func (d *Detector) buildDiagnosisPrompt(ctx context.Context, alert *model.Alert) string {
	var b strings.Builder
	b.WriteString("You are an SRE assistant. A monitored domain just failed its health check.\n\n")
	b.WriteString(fmt.Sprintf("Target: %s\n", alert.Target))
	b.WriteString(fmt.Sprintf("Detected at: %s\n", alert.DetectedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Error detail: %s\n\n", alert.ErrorDetail))
	b.WriteString("Diagnose the likely root cause and propose a concrete remediation plan. ")
	b.WriteString("Do NOT execute anything yet - a human will approve or reject the plan.\n")

	if d.knowledge != nil {
		if similar := d.knowledge.SimilarContext(ctx, alert.Target+" "+alert.ErrorDetail); similar != "" {
			b.WriteString("\n")
			b.WriteString(similar)
		}
	}
	return b.String()
}
