// 과거 장애 지식 베이스 서비스 정의
//
// 새 Alert의 진단 요약을 임베딩해서 pgvector에 색인하고,
// 진단 프롬프트에 주입할 유사 사례 블록을 만든다.

package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/domain-sentry/backend/internal/db"
	"github.com/domain-sentry/backend/internal/model"
)

// textEmbedder - 임베딩 클라이언트 인터페이스
type textEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// knowledgeStore - 임베딩 저장소 인터페이스
type knowledgeStore interface {
	InsertIncidentEmbedding(ctx context.Context, alertID, target, summary, model string, vector []float32) (int64, error)
	SearchSimilarIncidents(ctx context.Context, vector []float32, limit int) ([]db.KnowledgeEntry, error)
}

// KnowledgeService - 유사 사례 색인/검색
type KnowledgeService struct {
	embedder textEmbedder
	store    knowledgeStore
	topK     int
}

func NewKnowledgeService(embedder textEmbedder, store knowledgeStore, topK int) *KnowledgeService {
	if topK <= 0 {
		topK = 3
	}
	return &KnowledgeService{
		embedder: embedder,
		store:    store,
		topK:     topK,
	}
}

// Index - Alert의 진단 내용을 임베딩해서 색인
func (s *KnowledgeService) Index(ctx context.Context, alert model.Alert) error {
	text := indexText(alert)
	vector, embedModel, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed diagnosis: %w", err)
	}

	if _, err := s.store.InsertIncidentEmbedding(ctx, alert.AlertID, alert.Target, alert.DiagnosisSummary, embedModel, vector); err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// SimilarContext - 진단 프롬프트에 붙일 유사 사례 블록 생성 (없으면 빈 문자열)
func (s *KnowledgeService) SimilarContext(ctx context.Context, text string) string {
	vector, _, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		log.Printf("[Knowledge] embedding failed: %v", err)
		return ""
	}

	entries, err := s.store.SearchSimilarIncidents(ctx, vector, s.topK)
	if err != nil {
		log.Printf("[Knowledge] similarity search failed: %v", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Similar past incidents for reference:\n")
	for _, e := range entries {
		summary, _ := Truncate(e.Summary, 300)
		b.WriteString(fmt.Sprintf("- [%s] %s\n", e.Target, summary))
	}
	return b.String()
}

func indexText(alert model.Alert) string {
	return fmt.Sprintf("target: %s\nerror: %s\ndiagnosis: %s", alert.Target, alert.ErrorDetail, alert.DiagnosisSummary)
}
