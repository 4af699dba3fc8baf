// 과거 진단 임베딩 저장소 (pgvector)
//
// Detector가 새 장애의 진단 프롬프트에 과거 유사 사례를 주입할 때 사용

package db

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

// KnowledgeEntry - 유사 사례 검색 결과
type KnowledgeEntry struct {
	AlertID  string
	Target   string
	Summary  string
	Distance float64
}

// EnsureKnowledgeSchema - incident_embeddings 테이블 생성
// 임베딩 차원은 text-embedding-004 기준 768
func (db *Postgres) EnsureKnowledgeSchema() error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`
		CREATE TABLE IF NOT EXISTS incident_embeddings (
			id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL,
			embedding vector(768) NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(context.Background(), query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) InsertIncidentEmbedding(ctx context.Context, alertID, target, summary, model string, vector []float32) (int64, error) {
	var id int64
	query := `
		INSERT INTO incident_embeddings (alert_id, target, summary, embedding, model)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := db.Pool.QueryRow(ctx, query, alertID, target, summary, pgvector.NewVector(vector), model).Scan(&id)
	return id, err
}

// SearchSimilarIncidents - 코사인 거리 기준 상위 k건 조회
func (db *Postgres) SearchSimilarIncidents(ctx context.Context, vector []float32, limit int) ([]KnowledgeEntry, error) {
	query := `
		SELECT alert_id, target, summary, embedding <=> $1 AS distance
		FROM incident_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := db.Pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		var e KnowledgeEntry
		if err := rows.Scan(&e.AlertID, &e.Target, &e.Summary, &e.Distance); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
