package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/domain-sentry/backend/internal/model"
)

// EnsureWebhookSchema - webhook_configs 테이블 생성 (없으면)
func (db *Postgres) EnsureWebhookSchema() error {
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS webhook_configs (
			id         SERIAL       PRIMARY KEY,
			url        TEXT         NOT NULL DEFAULT '',
			method     TEXT         NOT NULL DEFAULT 'POST',
			headers    JSONB        NOT NULL DEFAULT '[]',
			body       TEXT         NOT NULL DEFAULT '',
			events     JSONB        NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create webhook_configs table: %w", err)
	}
	return nil
}

// GetWebhookConfigs - 웹훅 설정 전체 목록 조회 (최신순)
func (db *Postgres) GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, url, method, headers, body, events, updated_at
		FROM webhook_configs
		ORDER BY updated_at DESC;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook configs: %w", err)
	}
	defer rows.Close()

	var configs []model.WebhookConfig
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows.Scan)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if configs == nil {
		configs = []model.WebhookConfig{}
	}
	return configs, nil
}

// GetWebhookConfigByID - ID로 단건 조회
func (db *Postgres) GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, url, method, headers, body, events, updated_at
		FROM webhook_configs
		WHERE id = $1;
	`, id)

	cfg, err := scanWebhookConfig(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("webhook config not found: %w", err)
	}
	return cfg, nil
}

// CreateWebhookConfig - 신규 웹훅 설정 저장
func (db *Postgres) CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error) {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal headers: %w", err)
	}
	eventsJSON, err := json.Marshal(cfg.Events)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal events: %w", err)
	}

	var id int
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO webhook_configs (url, method, headers, body, events, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id;
	`, cfg.URL, cfg.Method, headersJSON, cfg.Body, eventsJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert webhook config: %w", err)
	}
	return id, nil
}

// UpdateWebhookConfig - 기존 웹훅 설정 수정
func (db *Postgres) UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}
	eventsJSON, err := json.Marshal(cfg.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE webhook_configs
		SET url = $2, method = $3, headers = $4, body = $5, events = $6, updated_at = NOW()
		WHERE id = $1;
	`, id, cfg.URL, cfg.Method, headersJSON, cfg.Body, eventsJSON)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook config not found: id=%d", id)
	}
	return nil
}

// DeleteWebhookConfig - 웹훅 설정 삭제
func (db *Postgres) DeleteWebhookConfig(ctx context.Context, id int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook config not found: id=%d", id)
	}
	return nil
}

func scanWebhookConfig(scan func(dest ...any) error) (*model.WebhookConfig, error) {
	var cfg model.WebhookConfig
	var headersJSON, eventsJSON []byte
	if err := scan(&cfg.ID, &cfg.URL, &cfg.Method, &headersJSON, &cfg.Body, &eventsJSON, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(headersJSON, &cfg.Headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	if err := json.Unmarshal(eventsJSON, &cfg.Events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}
	return &cfg, nil
}
