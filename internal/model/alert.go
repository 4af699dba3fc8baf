// Alert 엔티티 및 라이프사이클 상태 정의
// handler, service, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import "time"

// AlertStatus - Alert 라이프사이클 상태
type AlertStatus string

const (
	// StatusPending: 감지 직후, 승인 대기 중
	StatusPending AlertStatus = "pending"

	// StatusApproved: 승인됨, 실행 시그널 발행됨
	StatusApproved AlertStatus = "approved"

	// StatusRejected: 기각됨 (터미널)
	StatusRejected AlertStatus = "rejected"

	// StatusExecuting: 복구 작업 실행 중
	StatusExecuting AlertStatus = "executing"

	// StatusCompleted: 복구 완료 (터미널)
	StatusCompleted AlertStatus = "completed"

	// StatusFailed: 복구 실패 (터미널, 자동 재시도 없음)
	StatusFailed AlertStatus = "failed"

	// StatusExpired: 승인 없이 TTL 경과 (터미널, 스토어가 처리)
	StatusExpired AlertStatus = "expired"
)

// transitions - 허용되는 상태 전이
// 여기 없는 전이는 전부 거부됨 (역방향 전이 포함)
var transitions = map[AlertStatus][]AlertStatus{
	StatusPending:   {StatusApproved, StatusRejected, StatusExpired},
	StatusApproved:  {StatusExecuting},
	StatusExecuting: {StatusCompleted, StatusFailed},
}

// CanTransition - from에서 to로의 상태 전이 허용 여부
func CanTransition(from, to AlertStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal - 더 이상 전이할 수 없는 상태인지 확인
func (s AlertStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Alert - 감지된 장애 1건의 라이프사이클 레코드
// 각 Alert은 독립적으로 처리되며, 상태 변경은 전부 조건부 업데이트로만 수행
type Alert struct {
	// AlertID: 감지 시점에 생성되는 고유 식별자 (uuid, 불변)
	AlertID string `json:"alert_id"`

	// Target: 모니터링 대상 (예: 도메인 이름)
	Target string `json:"target"`

	// DetectedAt: 최초 장애 관측 시각 (UTC)
	DetectedAt time.Time `json:"detected_at"`

	// ErrorDetail: 헬스체크 실패 상세 (DNS 에러, HTTP 상태 등)
	ErrorDetail string `json:"error_detail"`

	Status AlertStatus `json:"status"`

	// DiagnosisSessionID: Agent 대화 컨텍스트 식별자
	// Executor가 같은 세션으로 재호출하여 진단 내용을 다시 보내지 않아도 됨
	DiagnosisSessionID string `json:"diagnosis_session_id"`

	// DiagnosisSummary: 채널로 전송되는 짧은 진단 요약
	DiagnosisSummary string `json:"diagnosis_summary"`

	// DiagnosisFullRef: 전체 진단 텍스트의 외부 저장 참조 (inline 한도 초과 시에만 설정)
	DiagnosisFullRef string `json:"diagnosis_full_ref,omitempty"`

	// 승인/기각 시에만 채워짐 (둘 중 하나의 결정만 기록됨)
	DecisionBy      string     `json:"decision_by,omitempty"`
	DecisionAt      *time.Time `json:"decision_at,omitempty"`
	DecisionComment string     `json:"decision_comment,omitempty"`

	// ExecutionLogRef: 복구 작업 전체 기록의 외부 저장 참조 (실행 후 채워짐)
	ExecutionLogRef string `json:"execution_log_ref,omitempty"`

	// ExpiresAt: 이 시각 이후 레코드는 자동 폐기 대상
	ExpiresAt time.Time `json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecisionAction - 승인 콜백의 요청 동작
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// StatusForAction - 동작에 대응하는 결정 상태 반환
func StatusForAction(action DecisionAction) (AlertStatus, bool) {
	switch action {
	case ActionApprove:
		return StatusApproved, true
	case ActionReject:
		return StatusRejected, true
	}
	return "", false
}

// AlertEventKind - Notifier로 전달되는 라이프사이클 이벤트 종류
type AlertEventKind string

const (
	EventCreated   AlertEventKind = "created"
	EventDecided   AlertEventKind = "decided"
	EventCompleted AlertEventKind = "completed"
)
