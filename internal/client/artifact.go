// 진단 전문/복구 기록을 보관하는 S3 아티팩트 저장소 정의
//
// 환경변수:
//   - S3_TRANSCRIPT_BUCKET: 버킷 이름 (미설정 시 아티팩트 저장 비활성)
//   - AWS_REGION: 리전
//
// 키 형식: alerts/<yyyy-mm-dd>/<target>/<unix>-<alert_id>.md

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/domain-sentry/backend/internal/config"
)

// presignTTL - 알림에 첨부하는 링크의 유효 시간
const presignTTL = 24 * time.Hour

// ArtifactStore 구조체 정의
type ArtifactStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewArtifactStore(cfg config.ArtifactConfig) (*ArtifactStore, error) {
	if cfg.Bucket == "" {
		return &ArtifactStore{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &ArtifactStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

func (s *ArtifactStore) IsConfigured() bool {
	return s.client != nil && s.bucket != ""
}

// Put - 텍스트 아티팩트 저장 후 키 반환
func (s *ArtifactStore) Put(ctx context.Context, alertID, target, kind, body string) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("artifact store not configured")
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("alerts/%s/%s/%d-%s-%s.md",
		now.Format("2006-01-02"), sanitizeKeyPart(target), now.Unix(), kind, alertID)

	contentType := "text/markdown; charset=utf-8"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader([]byte(body)),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put artifact: %w", err)
	}
	return key, nil
}

// Get - 저장된 아티팩트 본문 조회
func (s *ArtifactStore) Get(ctx context.Context, key string) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("artifact store not configured")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get artifact: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(body), nil
}

// PresignURL - 알림에 첨부할 24시간짜리 조회 링크 생성
func (s *ArtifactStore) PresignURL(ctx context.Context, key string) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("artifact store not configured")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign artifact URL: %w", err)
	}
	return req.URL, nil
}

// sanitizeKeyPart - 대상 문자열을 S3 키에 안전한 형태로 변환
func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
