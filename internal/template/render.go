// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{alert.id}}, {{alert.target}}, {{alert.status}}, {{alert.error}},
//	{{alert.detected_at}}, {{alert.summary}}, {{alert.decision_by}},
//	{{alert.decision_comment}}, {{alert.expires_at}}
//
//	{{event.kind}}
package template

import (
	"strings"
	"time"

	"github.com/domain-sentry/backend/internal/model"
)

// AlertData - 템플릿 렌더링에 사용할 Alert 데이터
type AlertData struct {
	ID              string
	Target          string
	Status          string
	Error           string
	DetectedAt      time.Time
	Summary         string
	DecisionBy      string
	DecisionComment string
	ExpiresAt       time.Time
}

// AlertDataFromModel - model.Alert에서 AlertData 생성
func AlertDataFromModel(alert model.Alert) AlertData {
	return AlertData{
		ID:              alert.AlertID,
		Target:          alert.Target,
		Status:          string(alert.Status),
		Error:           alert.ErrorDetail,
		DetectedAt:      alert.DetectedAt,
		Summary:         alert.DiagnosisSummary,
		DecisionBy:      alert.DecisionBy,
		DecisionComment: alert.DecisionComment,
		ExpiresAt:       alert.ExpiresAt,
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// alert가 nil이면 alert 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, alert *AlertData, eventKind string) string {
	pairs := make([]string, 0, 20)

	// --- Alert 변수 ---
	if alert != nil {
		pairs = append(pairs,
			"{{alert.id}}", alert.ID,
			"{{alert.target}}", alert.Target,
			"{{alert.status}}", alert.Status,
			"{{alert.error}}", alert.Error,
			"{{alert.detected_at}}", alert.DetectedAt.Format(time.RFC3339),
			"{{alert.summary}}", alert.Summary,
			"{{alert.decision_by}}", alert.DecisionBy,
			"{{alert.decision_comment}}", alert.DecisionComment,
			"{{alert.expires_at}}", alert.ExpiresAt.Format(time.RFC3339),
		)
	} else {
		pairs = append(pairs,
			"{{alert.id}}", "",
			"{{alert.target}}", "",
			"{{alert.status}}", "",
			"{{alert.error}}", "",
			"{{alert.detected_at}}", "",
			"{{alert.summary}}", "",
			"{{alert.decision_by}}", "",
			"{{alert.decision_comment}}", "",
			"{{alert.expires_at}}", "",
		)
	}

	// --- 이벤트 변수 ---
	pairs = append(pairs, "{{event.kind}}", eventKind)

	return strings.NewReplacer(pairs...).Replace(body)
}
