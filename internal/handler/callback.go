// 승인/기각 콜백 핸들러 정의
//
// 두 경로 모두 서명된 요청만 받는다:
//   - POST /callbacks/slack: Slack 인터랙티브 버튼 (X-Slack-Signature)
//   - POST /callbacks/decision: Teams/이메일 링크의 일반 결정 (X-Sentry-Signature)
//
// 서명 형식은 둘 다 v0=HMAC-SHA256(secret, "v0:<timestamp>:<body>")이고
// timestamp는 ±5분 안이어야 한다 (재전송 방어).
//
// 상태 코드 매핑:
//   400 잘못된 페이로드 / 401 서명 불일치 / 404 없거나 만료됨 / 409 이미 결정됨

package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

// signatureWindow - 허용하는 timestamp 편차
const signatureWindow = 5 * time.Minute

// approvalService - 서비스 인터페이스
type approvalService interface {
	Decide(ctx context.Context, alertID string, action model.DecisionAction, actor, comment string) (*model.Alert, error)
}

// CallbackHandler - 채널 콜백 핸들러
type CallbackHandler struct {
	svc            approvalService
	slackSecret    string
	callbackSecret string

	// 테스트에서 고정 시각 주입용
	now func() time.Time
}

func NewCallbackHandler(svc approvalService, slackSecret, callbackSecret string) *CallbackHandler {
	return &CallbackHandler{
		svc:            svc,
		slackSecret:    slackSecret,
		callbackSecret: callbackSecret,
		now:            time.Now,
	}
}

// SlackInteraction - Slack 인터랙티브 버튼 콜백 처리
func (h *CallbackHandler) SlackInteraction(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "failed to read request body"})
		return
	}

	if !h.verifySignature(h.slackSecret, c.GetHeader("X-Slack-Request-Timestamp"), c.GetHeader("X-Slack-Signature"), body) {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid signature"})
		return
	}

	// Slack은 form-encoded payload 필드에 JSON을 담는다
	values, err := parseFormBody(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid form body"})
		return
	}
	payloadJSON := values.Get("payload")
	if payloadJSON == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "missing payload"})
		return
	}

	var payload model.SlackInteractionPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}
	if len(payload.Actions) == 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "no actions in payload"})
		return
	}

	action := payload.Actions[0]
	actor := payload.User.Username
	if actor == "" {
		actor = payload.User.Name
	}
	if actor == "" {
		actor = payload.User.ID
	}

	var decision model.DecisionAction
	switch action.ActionID {
	case "approve_remediation":
		decision = model.ActionApprove
	case "reject_alert":
		decision = model.ActionReject
	case "view_full_diagnosis":
		// URL 버튼 - 결정 아님, ack만
		c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
		return
	default:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: fmt.Sprintf("unknown action: %s", action.ActionID)})
		return
	}

	alert, err := h.svc.Decide(c.Request.Context(), action.Value, decision, actor, "")
	if err != nil {
		h.respondDecisionError(c, action.Value, err)
		return
	}

	c.JSON(http.StatusOK, model.DecisionResponse{
		Status:  "success",
		AlertID: alert.AlertID,
		Message: decisionMessage(alert.Status),
	})
}

// Decision - Teams/이메일 링크용 일반 결정 콜백 처리
func (h *CallbackHandler) Decision(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "failed to read request body"})
		return
	}

	if !h.verifySignature(h.callbackSecret, c.GetHeader("X-Sentry-Timestamp"), c.GetHeader("X-Sentry-Signature"), body) {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid signature"})
		return
	}

	var req model.DecisionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.AlertID == "" || req.Action == "" || req.Actor == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "alert_id, action, actor are required"})
		return
	}

	action := model.DecisionAction(req.Action)
	if action != model.ActionApprove && action != model.ActionReject {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	alert, err := h.svc.Decide(c.Request.Context(), req.AlertID, action, req.Actor, req.Comment)
	if err != nil {
		h.respondDecisionError(c, req.AlertID, err)
		return
	}

	c.JSON(http.StatusOK, model.DecisionResponse{
		Status:  "success",
		AlertID: alert.AlertID,
		Message: decisionMessage(alert.Status),
	})
}

// DecideLink - Teams/이메일 알림의 승인/기각 링크 처리 (GET /alerts/:id/decide)
//
// 링크는 브라우저에서 열리므로 본문 서명 대신 alert_id+action에 묶인
// 토큰을 쿼리로 들고 다닌다. 유효기간은 Alert의 expires_at이 겸한다.
func (h *CallbackHandler) DecideLink(c *gin.Context) {
	alertID := c.Param("id")

	action := model.DecisionAction(c.Query("action"))
	if action != model.ActionApprove && action != model.ActionReject {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: fmt.Sprintf("unknown action: %s", c.Query("action"))})
		return
	}

	expected := model.DecisionLinkToken(h.callbackSecret, alertID, action)
	token := c.Query("token")
	if expected == "" || token == "" || !hmac.Equal([]byte(expected), []byte(token)) {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid token"})
		return
	}

	actor := c.Query("actor")
	if actor == "" {
		actor = "decision-link"
	}

	alert, err := h.svc.Decide(c.Request.Context(), alertID, action, actor, "")
	if err != nil {
		h.respondDecisionError(c, alertID, err)
		return
	}

	c.JSON(http.StatusOK, model.DecisionResponse{
		Status:  "success",
		AlertID: alert.AlertID,
		Message: decisionMessage(alert.Status),
	})
}

// respondDecisionError - 서비스 에러를 상태 코드로 매핑 (내부 상세는 숨김)
func (h *CallbackHandler) respondDecisionError(c *gin.Context, alertID string, err error) {
	switch {
	case errors.Is(err, db.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, model.DecisionResponse{
			Status:  "error",
			AlertID: alertID,
			Message: "alert not found or expired",
		})
	case errors.Is(err, db.ErrAlreadyDecided), errors.Is(err, db.ErrWrongStatus):
		c.JSON(http.StatusConflict, model.DecisionResponse{
			Status:  "error",
			AlertID: alertID,
			Message: "alert already decided",
		})
	default:
		log.Printf("[Callback] decision failed alert=%s: %v", alertID, err)
		c.JSON(http.StatusInternalServerError, model.DecisionResponse{
			Status:  "error",
			AlertID: alertID,
			Message: "internal error",
		})
	}
}

// verifySignature - v0=HMAC-SHA256(secret, "v0:<ts>:<body>") 검증
func (h *CallbackHandler) verifySignature(secret, timestamp, signature string, body []byte) bool {
	if secret == "" || timestamp == "" || signature == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	drift := h.now().UTC().Sub(time.Unix(ts, 0))
	if drift > signatureWindow || drift < -signatureWindow {
		return false
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func parseFormBody(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}

func decisionMessage(status model.AlertStatus) string {
	if status == model.StatusApproved {
		return "remediation approved - execution queued"
	}
	return "alert rejected - no action taken"
}
