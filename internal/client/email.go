// 이메일 알림 채널 정의
//
// 환경변수:
//   - EMAIL_PROVIDER: "resend" | "ses" (기본 resend)
//   - EMAIL_FROM: 발신 주소
//   - EMAIL_TO: 수신 주소 (쉼표 구분)
//
// 실제 전송은 EmailProvider 구현체(Resend/SES)에 위임한다.

package client

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/domain-sentry/backend/internal/config"
	"github.com/domain-sentry/backend/internal/model"
)

// emailSummaryLimit - 본문에 넣는 진단 요약 한도
const emailSummaryLimit = 8000

// EmailRequest - 프로바이더에 전달되는 이메일 1건
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// EmailProvider - 이메일 전송 백엔드 인터페이스 (Resend, SES)
type EmailProvider interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, req *EmailRequest) error
}

// EmailClient 구조체 정의
type EmailClient struct {
	provider EmailProvider
	from     string
	to       []string
}

// NewEmailClient - 설정된 프로바이더로 이메일 채널 생성
func NewEmailClient(cfg config.EmailConfig) *EmailClient {
	var p EmailProvider
	switch cfg.Provider {
	case "ses":
		p = NewSESProvider()
	default:
		p = NewResendProvider()
	}
	return &EmailClient{
		provider: p,
		from:     cfg.From,
		to:       cfg.To,
	}
}

func (c *EmailClient) IsConfigured() bool {
	return c.from != "" && len(c.to) > 0 && c.provider.IsConfigured()
}

func (c *EmailClient) Name() string { return "email" }

func (c *EmailClient) SummaryLimit() int { return emailSummaryLimit }

// NotifyCreated - 새 Alert 메일 전송 (승인/기각 링크 포함)
func (c *EmailClient) NotifyCreated(ctx context.Context, n model.AlertNotification) error {
	alert := n.Alert

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>⚠️ Domain Alert: %s</h2>", html.EscapeString(alert.Target)))
	b.WriteString("<table>")
	b.WriteString(fmt.Sprintf("<tr><td><b>Target</b></td><td>%s</td></tr>", html.EscapeString(alert.Target)))
	b.WriteString(fmt.Sprintf("<tr><td><b>Detected</b></td><td>%s</td></tr>", alert.DetectedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("<tr><td><b>Error</b></td><td>%s</td></tr>", html.EscapeString(alert.ErrorDetail)))
	b.WriteString(fmt.Sprintf("<tr><td><b>Alert ID</b></td><td>%s</td></tr>", html.EscapeString(alert.AlertID)))
	b.WriteString("</table>")
	b.WriteString("<h3>🤖 AI Diagnosis</h3>")
	b.WriteString(fmt.Sprintf("<pre>%s</pre>", html.EscapeString(n.Summary)))
	if n.Truncated && n.FullURL != "" {
		b.WriteString(fmt.Sprintf(`<p><a href="%s">View full diagnosis</a></p>`, n.FullURL))
	}
	if n.ApproveURL != "" || n.RejectURL != "" {
		b.WriteString("<p>")
		if n.ApproveURL != "" {
			b.WriteString(fmt.Sprintf(`<a href="%s">✅ Approve &amp; Execute</a> &nbsp; `, n.ApproveURL))
		}
		if n.RejectURL != "" {
			b.WriteString(fmt.Sprintf(`<a href="%s">❌ Reject</a>`, n.RejectURL))
		}
		b.WriteString("</p>")
	}

	return c.provider.Send(ctx, &EmailRequest{
		From:    c.from,
		To:      c.to,
		Subject: fmt.Sprintf("[domain-sentry] Alert: %s", alert.Target),
		HTML:    b.String(),
	})
}

// NotifyDecided - 승인/기각 결과 메일 전송
func (c *EmailClient) NotifyDecided(ctx context.Context, n model.AlertNotification) error {
	alert := n.Alert

	subject := fmt.Sprintf("[domain-sentry] Remediation approved: %s", alert.Target)
	body := fmt.Sprintf("Remediation for %s approved by %s.", alert.Target, alert.DecisionBy)
	if alert.Status == model.StatusRejected {
		subject = fmt.Sprintf("[domain-sentry] Alert rejected: %s", alert.Target)
		body = fmt.Sprintf("Alert for %s rejected by %s. No action taken.", alert.Target, alert.DecisionBy)
	}
	if alert.DecisionComment != "" {
		body += fmt.Sprintf("\nComment: %s", alert.DecisionComment)
	}

	return c.provider.Send(ctx, &EmailRequest{
		From:    c.from,
		To:      c.to,
		Subject: subject,
		Text:    body,
	})
}

// NotifyCompleted - 복구 결과 메일 전송
func (c *EmailClient) NotifyCompleted(ctx context.Context, n model.AlertNotification) error {
	alert := n.Alert

	subject := fmt.Sprintf("[domain-sentry] Remediation completed: %s", alert.Target)
	body := fmt.Sprintf("Remediation for %s completed.", alert.Target)
	if alert.Status == model.StatusFailed {
		subject = fmt.Sprintf("[domain-sentry] Remediation FAILED: %s", alert.Target)
		body = fmt.Sprintf("Remediation for %s failed. Manual intervention may be required.", alert.Target)
	}
	if n.TranscriptURL != "" {
		body += fmt.Sprintf("\nExecution log: %s", n.TranscriptURL)
	}

	return c.provider.Send(ctx, &EmailRequest{
		From:    c.from,
		To:      c.to,
		Subject: subject,
		Text:    body,
	})
}
