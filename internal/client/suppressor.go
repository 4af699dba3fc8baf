// 중복 알림 억제기 정의
//
// 환경변수:
//   - REDIS_ADDR: Redis 주소 (미설정 시 프로세스 내 메모리로 동작)
//
// Detector가 같은 대상에 대해 억제 창 안에서 Alert을 다시 만들지 않도록
// SetNX로 쿨다운 키를 잡는다. 복구 완료/기각 시 Clear로 즉시 해제한다.

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/domain-sentry/backend/internal/config"
)

// Suppressor 구조체 정의
type Suppressor struct {
	rdb *redis.Client

	// Redis 미설정 시 폴백
	mu    sync.Mutex
	local map[string]time.Time
}

func NewSuppressor(cfg config.RedisConfig) *Suppressor {
	s := &Suppressor{local: make(map[string]time.Time)}
	if cfg.Addr != "" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
		})
	}
	return s
}

func suppressKey(target string) string {
	return fmt.Sprintf("sentry:suppress:%s", target)
}

// Allow - 대상에 대한 쿨다운 키 획득 시도. true면 새 Alert 생성 가능.
func (s *Suppressor) Allow(ctx context.Context, target string, ttl time.Duration) (bool, error) {
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, suppressKey(target), time.Now().UTC().Format(time.RFC3339), ttl).Result()
		if err != nil {
			return false, fmt.Errorf("failed to acquire suppression key: %w", err)
		}
		return ok, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if until, ok := s.local[target]; ok && now.Before(until) {
		return false, nil
	}
	s.local[target] = now.Add(ttl)
	return true, nil
}

// Clear - 쿨다운 즉시 해제 (복구 완료/기각 후 재감지 허용)
func (s *Suppressor) Clear(ctx context.Context, target string) error {
	if s.rdb != nil {
		return s.rdb.Del(ctx, suppressKey(target)).Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.local, target)
	return nil
}

// Close - Redis 연결 종료
func (s *Suppressor) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}
