// 채널 콜백 페이로드 구조체 정의
//
// Slack 인터랙티브 버튼은 form-encoded `payload` 필드에 JSON을 담아 전송하고,
// Teams/이메일 링크는 /callbacks/decision으로 일반 JSON을 전송한다.

package model

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DecisionLinkToken - Teams/이메일 링크(GET /alerts/:id/decide)에 싣는 토큰
//
// alert_id+action에 묶인 HMAC이라 다른 Alert나 반대 결정에 재사용할 수 없다.
// 토큰 자체에 시한은 없고, Alert의 expires_at이 유효기간을 겸한다.
func DecisionLinkToken(secret, alertID string, action DecisionAction) string {
	if secret == "" || alertID == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", alertID, action)
	return hex.EncodeToString(mac.Sum(nil))
}

// SlackInteractionPayload - Slack 인터랙티브 콜백 중 여기서 사용하는 부분만 정의
type SlackInteractionPayload struct {
	Type        string            `json:"type"`
	User        SlackUser         `json:"user"`
	Actions     []SlackAction     `json:"actions"`
	ResponseURL string            `json:"response_url"`
	Channel     map[string]string `json:"channel"`
}

// SlackUser - 버튼을 누른 사용자
type SlackUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// SlackAction - 버튼 액션
// ActionID는 "approve_remediation", "reject_alert", "view_full_diagnosis" 중 하나
// Value에는 alert_id가 들어감
type SlackAction struct {
	ActionID string `json:"action_id"`
	Value    string `json:"value"`
}

// DecisionRequest - 일반 결정 콜백 요청 (Teams 링크, 이메일 링크용)
type DecisionRequest struct {
	AlertID string `json:"alert_id" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Actor   string `json:"actor" binding:"required"`
	Comment string `json:"comment"`
}
