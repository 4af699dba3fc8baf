// 사용자 설정 Webhook 알림 채널 정의
//
// DB에 저장된 webhook config마다 body 템플릿을 렌더링해서 HTTP로 전송한다.
// 개별 config 실패 시 로그만 남기고 나머지는 계속 전송한다.

package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/domain-sentry/backend/internal/model"
	tmpl "github.com/domain-sentry/backend/internal/template"
)

// webhookSummaryLimit - 템플릿 변수에 주입하는 요약 한도
const webhookSummaryLimit = 4000

// webhookConfigReader - DB 인터페이스 (delivery 전용)
type webhookConfigReader interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
}

// WebhookChannel - 커스텀 웹훅을 알림 채널로 노출
type WebhookChannel struct {
	configDB   webhookConfigReader
	httpClient *http.Client
}

func NewWebhookChannel(configDB webhookConfigReader) *WebhookChannel {
	return &WebhookChannel{
		configDB: configDB,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) SummaryLimit() int { return webhookSummaryLimit }

func (c *WebhookChannel) NotifyCreated(ctx context.Context, n model.AlertNotification) error {
	return c.deliver(ctx, n)
}

func (c *WebhookChannel) NotifyDecided(ctx context.Context, n model.AlertNotification) error {
	return c.deliver(ctx, n)
}

func (c *WebhookChannel) NotifyCompleted(ctx context.Context, n model.AlertNotification) error {
	return c.deliver(ctx, n)
}

// deliver - 이벤트를 구독하는 모든 config로 렌더링된 body 전송
func (c *WebhookChannel) deliver(ctx context.Context, n model.AlertNotification) error {
	configs, err := c.configDB.GetWebhookConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load webhook configs: %w", err)
	}
	if len(configs) == 0 {
		return nil
	}

	alert := n.Alert
	alert.DiagnosisSummary = n.Summary
	alertData := tmpl.AlertDataFromModel(alert)

	for _, cfg := range configs {
		if cfg.URL == "" {
			log.Printf("[WebhookChannel] skipping config id=%d: URL is empty", cfg.ID)
			continue
		}
		if !cfg.WantsEvent(n.Kind) {
			continue
		}

		rendered := tmpl.RenderBody(cfg.Body, &alertData, string(n.Kind))

		if err := c.sendHTTP(ctx, cfg, rendered); err != nil {
			log.Printf("[WebhookChannel] delivery failed url=%s config=%d: %v", cfg.URL, cfg.ID, err)
		} else {
			log.Printf("[WebhookChannel] delivered url=%s config=%d kind=%s", cfg.URL, cfg.ID, n.Kind)
		}
	}
	return nil
}

// sendHTTP - 단일 webhook config로 HTTP 요청 전송
func (c *WebhookChannel) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
