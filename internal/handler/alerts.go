// 대시보드 Alert 조회/결정 API 핸들러 정의

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

// alertReader - Alert 저장소 인터페이스 (조회 전용)
type alertReader interface {
	GetAlertList(ctx context.Context) ([]model.AlertListItem, error)
	GetAlert(ctx context.Context, alertID string) (*model.Alert, error)
}

// artifactReader - 외부 저장 텍스트 조회 인터페이스
type artifactReader interface {
	IsConfigured() bool
	Get(ctx context.Context, key string) (string, error)
}

// AlertHandler - Alert 관련 핸들러
type AlertHandler struct {
	store     alertReader
	approval  approvalService
	artifacts artifactReader
}

func NewAlertHandler(store alertReader, approval approvalService, artifacts artifactReader) *AlertHandler {
	return &AlertHandler{
		store:     store,
		approval:  approval,
		artifacts: artifacts,
	}
}

// ListAlerts - GET /api/alerts
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	list, err := h.store.GetAlertList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.AlertListResponse{Status: "success", Data: list})
}

// GetAlert - GET /api/alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.store.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.AlertDetailResponse{Status: "success", Data: alert})
}

// GetDiagnosis - GET /api/alerts/:id/diagnosis
// 인라인 요약이 전부면 그대로, 외부 참조가 있으면 전문을 읽어서 반환
func (h *AlertHandler) GetDiagnosis(c *gin.Context) {
	h.serveText(c, func(alert *model.Alert) (inline, ref string) {
		return alert.DiagnosisSummary, alert.DiagnosisFullRef
	})
}

// GetExecutionLog - GET /api/alerts/:id/execution-log
func (h *AlertHandler) GetExecutionLog(c *gin.Context) {
	h.serveText(c, func(alert *model.Alert) (inline, ref string) {
		return "", alert.ExecutionLogRef
	})
}

// DecideAlert - POST /api/alerts/:id/decision (인증된 대시보드용)
func (h *AlertHandler) DecideAlert(c *gin.Context) {
	var req struct {
		Action  string `json:"action" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	action := model.DecisionAction(req.Action)
	if action != model.ActionApprove && action != model.ActionReject {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "action must be approve or reject"})
		return
	}

	actor := "dashboard"
	if user := GetAuthUser(c); user != nil {
		actor = user.LoginID
	}

	alert, err := h.approval.Decide(c.Request.Context(), c.Param("id"), action, actor, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
		case errors.Is(err, db.ErrAlreadyDecided), errors.Is(err, db.ErrWrongStatus):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "error": "alert already decided"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, model.AlertDetailResponse{Status: "success", Data: alert})
}

func (h *AlertHandler) serveText(c *gin.Context, pick func(*model.Alert) (string, string)) {
	alert, err := h.store.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	inline, ref := pick(alert)
	text := inline
	if ref != "" && h.artifacts != nil && h.artifacts.IsConfigured() {
		full, getErr := h.artifacts.Get(c.Request.Context(), ref)
		if getErr == nil {
			text = full
		}
	}
	if text == "" {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "no text available"})
		return
	}

	c.JSON(http.StatusOK, model.AlertTextResponse{
		Status:  "success",
		AlertID: alert.AlertID,
		Text:    text,
	})
}
