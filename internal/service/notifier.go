// 알림 채널 공통 인터페이스와 전파 로직 정의
//
// 채널 하나의 실패가 다른 채널 전송을 막지 않는다 (best-effort 팬아웃).
// 요약은 채널별 한도에 맞춰 룬 단위로 잘라서 전달한다.

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/domain-sentry/backend/internal/model"
)

// truncationMarker - 잘림 표시 (한도 계산에 포함)
const truncationMarker = "\n…(truncated)"

// Channel - 알림 채널 인터페이스 (Slack, Teams, Email, Webhook)
type Channel interface {
	Name() string

	// SummaryLimit - 이 채널이 본문에 실을 수 있는 진단 요약 최대 길이 (룬)
	SummaryLimit() int

	NotifyCreated(ctx context.Context, n model.AlertNotification) error
	NotifyDecided(ctx context.Context, n model.AlertNotification) error
	NotifyCompleted(ctx context.Context, n model.AlertNotification) error
}

// artifactLinker - 외부 저장 참조를 조회 링크로 바꾸는 인터페이스
type artifactLinker interface {
	IsConfigured() bool
	PresignURL(ctx context.Context, key string) (string, error)
}

// Notifier - 라이프사이클 이벤트를 등록된 모든 채널로 전파
type Notifier struct {
	channels      []Channel
	artifacts     artifactLinker
	publicBaseURL string
	linkSecret    string
}

func NewNotifier(artifacts artifactLinker, publicBaseURL, linkSecret string, channels ...Channel) *Notifier {
	return &Notifier{
		channels:      channels,
		artifacts:     artifacts,
		publicBaseURL: publicBaseURL,
		linkSecret:    linkSecret,
	}
}

// Register - 채널 추가 (설정된 채널만 등록할 것)
func (n *Notifier) Register(ch Channel) {
	n.channels = append(n.channels, ch)
}

// Notify - 이벤트를 모든 채널에 전달. 채널별 실패는 로그만 남긴다.
func (n *Notifier) Notify(ctx context.Context, alert model.Alert, kind model.AlertEventKind) {
	fullURL := n.linkFor(ctx, alert.DiagnosisFullRef)
	transcriptURL := n.linkFor(ctx, alert.ExecutionLogRef)

	for _, ch := range n.channels {
		summary, truncated := Truncate(alert.DiagnosisSummary, ch.SummaryLimit())

		notif := model.AlertNotification{
			Alert:         alert,
			Kind:          kind,
			Summary:       summary,
			Truncated:     truncated || alert.DiagnosisFullRef != "",
			FullURL:       fullURL,
			TranscriptURL: transcriptURL,
			ApproveURL:    n.decisionURL(alert.AlertID, model.ActionApprove),
			RejectURL:     n.decisionURL(alert.AlertID, model.ActionReject),
		}

		var err error
		switch kind {
		case model.EventCreated:
			err = ch.NotifyCreated(ctx, notif)
		case model.EventDecided:
			err = ch.NotifyDecided(ctx, notif)
		case model.EventCompleted:
			err = ch.NotifyCompleted(ctx, notif)
		default:
			err = fmt.Errorf("unknown event kind: %s", kind)
		}
		if err != nil {
			log.Printf("[Notifier] delivery failed channel=%s alert=%s kind=%s: %v", ch.Name(), alert.AlertID, kind, err)
		}
	}
}

// linkFor - 외부 저장 참조를 조회 가능한 URL로 변환 (실패 시 빈 문자열)
func (n *Notifier) linkFor(ctx context.Context, ref string) string {
	if ref == "" || n.artifacts == nil || !n.artifacts.IsConfigured() {
		return ""
	}
	url, err := n.artifacts.PresignURL(ctx, ref)
	if err != nil {
		log.Printf("[Notifier] failed to presign artifact link ref=%s: %v", ref, err)
		return ""
	}
	return url
}

// decisionURL - 버튼이 없는 채널(Teams, Email)에 넣는 승인/기각 링크
//
// GET /alerts/:id/decide가 토큰을 검증하므로 서명 시크릿이 없으면
// 어차피 죽은 링크다. 그 경우 링크 자체를 생략한다.
func (n *Notifier) decisionURL(alertID string, action model.DecisionAction) string {
	if n.publicBaseURL == "" || n.linkSecret == "" {
		return ""
	}
	token := model.DecisionLinkToken(n.linkSecret, alertID, action)
	return fmt.Sprintf("%s/alerts/%s/decide?action=%s&token=%s", n.publicBaseURL, alertID, action, token)
}

// Truncate - 룬 단위 절단. 잘렸으면 marker를 붙이고 true 반환.
// limit이 0 이하이면 자르지 않는다.
func Truncate(s string, limit int) (string, bool) {
	if limit <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}

	marker := []rune(truncationMarker)
	keep := limit - len(marker)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncationMarker, true
}
