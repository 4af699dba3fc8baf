// 외부 Slack API와 통신하는 클라이언트 정의
// Client 레이어에서만 사용하는 구조체 및 Slack 공통 메서드 정의
//
// 환경변수:
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//
// Webhook 대신 Bot Token을 사용하는 이유:
//   - thread_ts 반환: 메시지 전송 후 timestamp를 받아 쓰레드 관리 가능
//   - 결정/완료 알림을 최초 알림과 같은 쓰레드로 전송 가능

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/model"
)

// slackSummaryLimit - section block 하나의 렌더링 한도 (Slack 제한 3000자보다 약간 작게)
const slackSummaryLimit = 2900

// SlackClient 구조체 정의
type SlackClient struct {
	botToken   string
	channelID  string
	httpClient *http.Client

	// threadMap: alert_id -> thread_ts 매핑
	//   - decided/completed 알림을 최초 created 메시지와 같은 쓰레드로 보내기 위함
	// sync.Map 사용 이유: 동시성 안전 (여러 알림이 동시에 처리될 수 있음)
	threadMap sync.Map
}

// SlackMessage(메시지 내용) 구조체 정의
type SlackMessage struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Blocks      []SlackBlock      `json:"blocks,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
	ThreadTS    string            `json:"thread_ts,omitempty"`
}

// SlackBlock - Block Kit 블록 (header, section, divider, actions, context)
type SlackBlock struct {
	Type     string         `json:"type"`
	Text     *SlackText     `json:"text,omitempty"`
	Fields   []SlackText    `json:"fields,omitempty"`
	Elements []SlackElement `json:"elements,omitempty"`
}

// SlackText - 텍스트 오브젝트 (plain_text 또는 mrkdwn)
type SlackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// SlackElement - actions 블록의 버튼 또는 context 블록의 텍스트
type SlackElement struct {
	Type     string     `json:"type"`
	Text     *SlackText `json:"text,omitempty"`
	Style    string     `json:"style,omitempty"`
	Value    string     `json:"value,omitempty"`
	ActionID string     `json:"action_id,omitempty"`
	URL      string     `json:"url,omitempty"`
}

// SlackAttachment - 색상 표시용 (fallback 텍스트 포함)
type SlackAttachment struct {
	Color    string `json:"color"`
	Fallback string `json:"fallback,omitempty"`
}

// SlackResponse(메시지 응답) 구조체 정의
type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// SlackClient 객체 생성
func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	return &SlackClient{
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SlackClient에 Bot Token과 Channel ID가 모두 설정되어 있는지 체크
func (c *SlackClient) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

func (c *SlackClient) Name() string { return "slack" }

func (c *SlackClient) SummaryLimit() int { return slackSummaryLimit }

// NotifyCreated - 새 Alert을 승인/기각 버튼과 함께 전송
func (c *SlackClient) NotifyCreated(ctx context.Context, n model.AlertNotification) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	alert := n.Alert
	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{Type: "plain_text", Text: fmt.Sprintf("🚨 ALERT: %s unreachable", alert.Target), Emoji: true},
		},
		{
			Type: "section",
			Fields: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Target:*\n%s", alert.Target)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Detected:*\n%s", alert.DetectedAt.Format(time.RFC3339))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n%s", alert.ErrorDetail)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Alert ID:*\n`%s`", alert.AlertID)},
			},
		},
		{Type: "divider"},
		{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: "*🤖 AI Diagnosis:*\n" + toSlackMarkdown(n.Summary)},
		},
	}

	// 잘린 경우 전체 진단 링크 표시
	if n.Truncated && n.FullURL != "" {
		blocks = append(blocks, SlackBlock{
			Type: "context",
			Elements: []SlackElement{
				{Type: "mrkdwn", Text: &SlackText{Type: "mrkdwn", Text: "📄 Full diagnosis: " + n.FullURL}},
			},
		})
	}

	// 승인 워크플로우 버튼
	actions := []SlackElement{
		{
			Type:     "button",
			Text:     &SlackText{Type: "plain_text", Text: "✅ Approve & Execute", Emoji: true},
			Style:    "primary",
			Value:    alert.AlertID,
			ActionID: "approve_remediation",
		},
		{
			Type:     "button",
			Text:     &SlackText{Type: "plain_text", Text: "❌ Reject", Emoji: true},
			Style:    "danger",
			Value:    alert.AlertID,
			ActionID: "reject_alert",
		},
	}
	if n.FullURL != "" {
		actions = append(actions, SlackElement{
			Type:     "button",
			Text:     &SlackText{Type: "plain_text", Text: "📄 View Full Diagnosis", Emoji: true},
			URL:      n.FullURL,
			ActionID: "view_full_diagnosis",
		})
	}
	blocks = append(blocks,
		SlackBlock{Type: "divider"},
		SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: "*Review the diagnosis and approve to execute remediation actions:*"},
		},
		SlackBlock{Type: "actions", Elements: actions},
	)

	msg := SlackMessage{
		Channel: c.channelID,
		Blocks:  blocks,
		Attachments: []SlackAttachment{
			{Color: "#dc3545", Fallback: fmt.Sprintf("ALERT: %s is unreachable", alert.Target)},
		},
	}

	resp, err := c.send(ctx, msg)
	if err != nil {
		return err
	}

	// thread_ts 저장: 이후 decided/completed 알림을 같은 쓰레드로 전송
	if resp.TS != "" {
		c.threadMap.Store(alert.AlertID, resp.TS)
	}
	return nil
}

// NotifyDecided - 승인/기각 결과를 created 쓰레드에 전송
func (c *SlackClient) NotifyDecided(ctx context.Context, n model.AlertNotification) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	alert := n.Alert
	var title, color string
	if alert.Status == model.StatusApproved {
		title = fmt.Sprintf("✅ Approved by %s - executing remediation", alert.DecisionBy)
		color = "#36a64f"
	} else {
		title = fmt.Sprintf("❌ Rejected by %s - no action taken", alert.DecisionBy)
		color = "#ff0000"
	}

	text := title
	if alert.DecisionComment != "" {
		text += "\n> " + alert.DecisionComment
	}

	msg := SlackMessage{
		Channel: c.channelID,
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: text}},
			{
				Type: "context",
				Elements: []SlackElement{
					{Type: "mrkdwn", Text: &SlackText{Type: "mrkdwn", Text: fmt.Sprintf("Alert ID: `%s`", alert.AlertID)}},
				},
			},
		},
		Attachments: []SlackAttachment{{Color: color, Fallback: title}},
	}
	if ts, ok := c.threadMap.Load(alert.AlertID); ok {
		msg.ThreadTS = ts.(string)
	}

	_, err := c.send(ctx, msg)
	return err
}

// NotifyCompleted - 복구 결과를 created 쓰레드에 전송 후 thread_ts 제거
func (c *SlackClient) NotifyCompleted(ctx context.Context, n model.AlertNotification) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	alert := n.Alert
	var title, color string
	if alert.Status == model.StatusCompleted {
		title = fmt.Sprintf("🔧 Remediation completed for %s", alert.Target)
		color = "#36a64f"
	} else {
		title = fmt.Sprintf("⚠️ Remediation failed for %s", alert.Target)
		color = "#dc3545"
	}

	blocks := []SlackBlock{
		{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: "*" + title + "*"}},
	}
	if n.TranscriptURL != "" {
		blocks = append(blocks, SlackBlock{
			Type: "context",
			Elements: []SlackElement{
				{Type: "mrkdwn", Text: &SlackText{Type: "mrkdwn", Text: "📄 Execution log: " + n.TranscriptURL}},
			},
		})
	}

	msg := SlackMessage{
		Channel:     c.channelID,
		Blocks:      blocks,
		Attachments: []SlackAttachment{{Color: color, Fallback: title}},
	}
	if ts, ok := c.threadMap.Load(alert.AlertID); ok {
		msg.ThreadTS = ts.(string)
	}

	_, err := c.send(ctx, msg)

	// 터미널 이벤트이므로 메모리 정리
	c.threadMap.Delete(alert.AlertID)
	return err
}

// Slack API 호출
func (c *SlackClient) send(ctx context.Context, msg SlackMessage) (*SlackResponse, error) {
	// JSON 직렬화
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	// HTTP 요청 생성
	req, err := http.NewRequestWithContext(ctx, "POST", "https://slack.com/api/chat.postMessage", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 헤더 설정
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	// 요청 전송
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	// 응답 읽기
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// JSON 파싱
	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// 에러 확인
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}

	return &slackResp, nil
}

var slackHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// toSlackMarkdown - 일반 마크다운을 Slack mrkdwn으로 변환
// 코드 블록과 인라인 코드 내부는 건드리지 않음
func toSlackMarkdown(text string) string {
	var b strings.Builder
	fenced := strings.Split(text, "```")
	for i, segment := range fenced {
		if i%2 == 1 {
			// 코드 블록 내부 보호
			b.WriteString("```")
			b.WriteString(segment)
			b.WriteString("```")
			continue
		}
		inline := strings.Split(segment, "`")
		for j, part := range inline {
			if j%2 == 1 {
				// 인라인 코드 보호
				b.WriteString("`")
				b.WriteString(part)
				b.WriteString("`")
				continue
			}
			part = slackHeadingRe.ReplaceAllString(part, "*$1*")
			part = strings.ReplaceAll(part, "**", "*")
			b.WriteString(part)
		}
	}
	return b.String()
}
