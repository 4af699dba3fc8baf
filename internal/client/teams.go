// Microsoft Teams Incoming Webhook 클라이언트 정의 (Adaptive Card)
//
// 환경변수:
//   - TEAMS_WEBHOOK_URL: Teams 채널 Incoming Webhook URL
//
// Teams는 인터랙티브 버튼 콜백 대신 /callbacks/decision으로 가는
// 승인/기각 링크(Action.OpenUrl)를 첨부한다.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/model"
)

// teamsSummaryLimit - Adaptive Card TextBlock 렌더링 한도
const teamsSummaryLimit = 2400

// TeamsClient 구조체 정의
type TeamsClient struct {
	webhookURL string
	httpClient *http.Client
}

// teamsCard - Adaptive Card 메시지 래퍼
type teamsCard struct {
	Type        string            `json:"type"`
	Attachments []teamsAttachment `json:"attachments"`
}

type teamsAttachment struct {
	ContentType string       `json:"contentType"`
	Content     teamsContent `json:"content"`
}

type teamsContent struct {
	Schema  string        `json:"$schema"`
	Type    string        `json:"type"`
	Version string        `json:"version"`
	Body    []teamsBlock  `json:"body"`
	Actions []teamsAction `json:"actions,omitempty"`
	MSTeams map[string]string `json:"msteams,omitempty"`
}

type teamsBlock struct {
	Type      string      `json:"type"`
	Size      string      `json:"size,omitempty"`
	Weight    string      `json:"weight,omitempty"`
	Text      string      `json:"text,omitempty"`
	Color     string      `json:"color,omitempty"`
	Wrap      bool        `json:"wrap,omitempty"`
	Separator bool        `json:"separator,omitempty"`
	Facts     []teamsFact `json:"facts,omitempty"`
}

type teamsFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type teamsAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Style string `json:"style,omitempty"`
}

func NewTeamsClient(cfg config.TeamsConfig) *TeamsClient {
	return &TeamsClient{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *TeamsClient) IsConfigured() bool {
	return c.webhookURL != ""
}

func (c *TeamsClient) Name() string { return "teams" }

func (c *TeamsClient) SummaryLimit() int { return teamsSummaryLimit }

// NotifyCreated - 새 Alert을 Adaptive Card로 전송 (승인/기각 링크 포함)
func (c *TeamsClient) NotifyCreated(ctx context.Context, n model.AlertNotification) error {
	alert := n.Alert

	body := []teamsBlock{
		{
			Type:   "TextBlock",
			Size:   "Large",
			Weight: "Bolder",
			Text:   fmt.Sprintf("⚠️ Domain Alert: %s", alert.Target),
			Color:  "Attention",
			Wrap:   true,
		},
		{
			Type: "FactSet",
			Facts: []teamsFact{
				{Title: "Target:", Value: alert.Target},
				{Title: "Detected:", Value: alert.DetectedAt.Format(time.RFC3339)},
				{Title: "Error:", Value: alert.ErrorDetail},
				{Title: "Alert ID:", Value: alert.AlertID},
			},
		},
		{
			Type:   "TextBlock",
			Size:   "Medium",
			Weight: "Bolder",
			Text:   "🤖 AI Diagnosis",
			Wrap:   true,
		},
		{
			Type:      "TextBlock",
			Text:      n.Summary,
			Wrap:      true,
			Separator: true,
		},
	}

	var actions []teamsAction
	if n.ApproveURL != "" {
		actions = append(actions, teamsAction{
			Type:  "Action.OpenUrl",
			Title: "✅ Approve & Execute",
			URL:   n.ApproveURL,
			Style: "positive",
		})
	}
	if n.RejectURL != "" {
		actions = append(actions, teamsAction{
			Type:  "Action.OpenUrl",
			Title: "❌ Reject",
			URL:   n.RejectURL,
		})
	}
	if n.Truncated && n.FullURL != "" {
		actions = append(actions, teamsAction{
			Type:  "Action.OpenUrl",
			Title: "📄 View Full Diagnosis",
			URL:   n.FullURL,
		})
	}

	return c.send(ctx, body, actions)
}

// NotifyDecided - 승인/기각 결과 전송
func (c *TeamsClient) NotifyDecided(ctx context.Context, n model.AlertNotification) error {
	alert := n.Alert

	text := fmt.Sprintf("✅ Remediation approved by %s", alert.DecisionBy)
	color := "Good"
	if alert.Status == model.StatusRejected {
		text = fmt.Sprintf("❌ Alert rejected by %s - no action taken", alert.DecisionBy)
		color = "Attention"
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Medium", Weight: "Bolder", Text: text, Color: color, Wrap: true},
		{
			Type: "FactSet",
			Facts: []teamsFact{
				{Title: "Target:", Value: alert.Target},
				{Title: "Alert ID:", Value: alert.AlertID},
			},
		},
	}
	return c.send(ctx, body, nil)
}

// NotifyCompleted - 복구 결과 전송 (실행 기록 링크 포함)
func (c *TeamsClient) NotifyCompleted(ctx context.Context, n model.AlertNotification) error {
	alert := n.Alert

	text := fmt.Sprintf("🔧 Remediation completed for %s", alert.Target)
	color := "Good"
	if alert.Status == model.StatusFailed {
		text = fmt.Sprintf("⚠️ Remediation failed for %s", alert.Target)
		color = "Attention"
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Medium", Weight: "Bolder", Text: text, Color: color, Wrap: true},
	}

	var actions []teamsAction
	if n.TranscriptURL != "" {
		actions = append(actions, teamsAction{
			Type:  "Action.OpenUrl",
			Title: "📄 View Execution Log",
			URL:   n.TranscriptURL,
		})
	}
	return c.send(ctx, body, actions)
}

func (c *TeamsClient) send(ctx context.Context, body []teamsBlock, actions []teamsAction) error {
	if !c.IsConfigured() {
		return fmt.Errorf("teams webhook URL not configured")
	}

	card := teamsCard{
		Type: "message",
		Attachments: []teamsAttachment{
			{
				ContentType: "application/vnd.microsoft.card.adaptive",
				Content: teamsContent{
					Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
					Type:    "AdaptiveCard",
					Version: "1.4",
					Body:    body,
					Actions: actions,
					MSTeams: map[string]string{"width": "Full"},
				},
			},
		},
	}

	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send card: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("teams webhook returned status: %d", resp.StatusCode)
	}
	return nil
}
