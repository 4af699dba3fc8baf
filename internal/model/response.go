package model

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DecisionResponse - 콜백 응답 (내부 에러 상세는 절대 노출하지 않음)
type DecisionResponse struct {
	Status  string `json:"status"`
	AlertID string `json:"alert_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// AlertListItem - Alert 목록 조회 응답 항목
type AlertListItem struct {
	AlertID    string      `json:"alert_id"`
	Target     string      `json:"target"`
	Status     AlertStatus `json:"status"`
	DetectedAt time.Time   `json:"detected_at"`
	DecisionBy string      `json:"decision_by,omitempty"`
	DecisionAt *time.Time  `json:"decision_at,omitempty"`
}

// AlertListResponse - 목록 조회 응답
type AlertListResponse struct {
	Status string          `json:"status"`
	Data   []AlertListItem `json:"data"`
}

// AlertDetailResponse - 단건 조회 응답
type AlertDetailResponse struct {
	Status string `json:"status"`
	Data   *Alert `json:"data"`
}

// AlertTextResponse - 전체 진단/실행 기록 텍스트 응답
type AlertTextResponse struct {
	Status  string `json:"status"`
	AlertID string `json:"alert_id"`
	Text    string `json:"text"`
}

type AuthLoginResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type AuthMeResponse struct {
	OperatorID int64  `json:"operatorId"`
	LoginID    string `json:"loginId"`
}
