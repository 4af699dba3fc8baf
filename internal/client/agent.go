// 진단/복구 Agent 런타임과 HTTP 통신하는 클라이언트 정의
//
// 환경변수:
//   - AGENT_URL: Agent 런타임 URL
//   - AGENT_ACTOR_ID: 런타임에 전달하는 호출자 식별자
//   - AGENT_TOKEN_URL / AGENT_CLIENT_ID / AGENT_CLIENT_SECRET: OAuth2 client credentials
//   - AGENT_STATIC_TOKEN: 고정 Bearer 토큰 (TokenURL 미설정 시)
//
// 런타임은 SSE(data: 라인)로 응답을 스트리밍하며, text_delta 이벤트를
// 이어 붙인 전체 텍스트를 반환한다. 같은 session_id로 다시 호출하면
// 런타임이 이전 대화 맥락을 이어서 사용한다.

package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/domain-sentry/backend/internal/config"
)

// AgentClient 구조체 정의
type AgentClient struct {
	baseURL     string
	actorID     string
	staticToken string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// AgentInvokeRequest 구조체 정의
type AgentInvokeRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
	ActorID   string `json:"actor_id"`
}

// agentStreamEvent - SSE data 라인 1건
type agentStreamEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AgentClient 객체 생성
func NewAgentClient(cfg config.AgentConfig) *AgentClient {
	c := &AgentClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		actorID:     cfg.ActorID,
		staticToken: cfg.StaticToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout, // AI 진단/복구 시간 고려
		},
	}

	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		c.tokenSource = cc.TokenSource(context.Background())
	}
	return c
}

// Agent 설정 여부 체크
func (c *AgentClient) IsConfigured() bool {
	return c.baseURL != ""
}

// Invoke - POST /invocations 호출 후 스트리밍 텍스트 전체 반환.
// 스트림 도중 실패하면 그때까지 수신한 부분 텍스트와 에러를 함께 반환한다.
func (c *AgentClient) Invoke(ctx context.Context, sessionID, prompt string) (string, error) {
	req := AgentInvokeRequest{
		Prompt:    prompt,
		SessionID: sessionID,
		ActorID:   c.actorID,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/invocations", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	token, err := c.bearerToken()
	if err != nil {
		return "", fmt.Errorf("failed to obtain agent token: %w", err)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request to agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent returned status: %d", resp.StatusCode)
	}

	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var ev agentStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// JSON이 아닌 data 라인은 평문 델타로 취급
			out.WriteString(data)
			continue
		}
		if ev.Type == "" || ev.Type == "text_delta" {
			out.WriteString(ev.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return out.String(), fmt.Errorf("agent stream interrupted: %w", err)
	}

	return out.String(), nil
}

func (c *AgentClient) bearerToken() (string, error) {
	if c.tokenSource != nil {
		tok, err := c.tokenSource.Token()
		if err != nil {
			return "", err
		}
		return tok.AccessToken, nil
	}
	return c.staticToken, nil
}
