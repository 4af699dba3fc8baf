// 채널로 전달되는 렌더링 완료 알림 정의
// Notifier가 채널별 한도에 맞춰 요약을 잘라서 채움

package model

// AlertNotification - 채널 1곳에 전달되는 알림 1건
type AlertNotification struct {
	Alert Alert
	Kind  AlertEventKind

	// Summary: 채널 한도로 잘린 진단 요약
	Summary string

	// Truncated: 잘림이 발생했는지 여부 (true면 FullURL 첨부 대상)
	Truncated bool

	// FullURL: 전체 진단 텍스트 링크 (없으면 빈 문자열)
	FullURL string

	// TranscriptURL: 복구 기록 링크 (completed 이벤트에서만)
	TranscriptURL string

	// 승인/기각 링크 (버튼이 없는 채널용)
	ApproveURL string
	RejectURL  string
}
