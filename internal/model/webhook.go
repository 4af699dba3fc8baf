package model

import "time"

// WebhookHeader - 헤더 키-값 쌍
type WebhookHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WebhookConfig - DB에 저장되는 커스텀 웹훅 설정
// Events가 비어 있으면 모든 라이프사이클 이벤트를 수신
type WebhookConfig struct {
	ID        int             `json:"id"`
	URL       string          `json:"url"`
	Method    string          `json:"method"`
	Headers   []WebhookHeader `json:"headers"`
	Body      string          `json:"body"`
	Events    []string        `json:"events"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WantsEvent - 이 설정이 해당 이벤트를 수신하는지 확인
func (c WebhookConfig) WantsEvent(kind AlertEventKind) bool {
	if len(c.Events) == 0 {
		return true
	}
	for _, e := range c.Events {
		if e == string(kind) {
			return true
		}
	}
	return false
}

// WebhookConfigRequest - 웹훅 설정 생성/수정 요청
type WebhookConfigRequest struct {
	URL     string          `json:"url"`
	Method  string          `json:"method"`
	Headers []WebhookHeader `json:"headers"`
	Body    string          `json:"body"`
	Events  []string        `json:"events"`
}

// WebhookConfigResponse - 단건 조회 응답
type WebhookConfigResponse struct {
	Status string         `json:"status"`
	Data   *WebhookConfig `json:"data"`
}

// WebhookConfigListResponse - 목록 조회 응답
type WebhookConfigListResponse struct {
	Status string          `json:"status"`
	Data   []WebhookConfig `json:"data"`
}

// WebhookConfigMutationResponse - 생성/수정/삭제 응답
type WebhookConfigMutationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}
