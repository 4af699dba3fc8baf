// 승인된 복구 작업을 Executor에 전달하는 실행 버스 정의
//
// KAFKA_BROKERS가 설정되면 Kafka, 아니면 프로세스 내 채널 버스를 쓴다.
// 어느 쪽이든 적어도 1회 전달을 가정하며, Executor는 상태 전이로
// 중복 전달을 걸러낸다.

package bus

import (
	"context"
	"time"
)

// ExecutionSignal - 승인 1건에 대한 실행 지시
type ExecutionSignal struct {
	AlertID   string    `json:"alert_id"`
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

// Publisher - 승인 핸들러가 실행 지시를 내보내는 쪽
type Publisher interface {
	Publish(ctx context.Context, sig ExecutionSignal) error
	Close() error
}

// Consumer - Executor가 실행 지시를 받아오는 쪽
type Consumer interface {
	// Read - 다음 실행 지시 1건을 블로킹으로 수신
	Read(ctx context.Context) (ExecutionSignal, error)
	Close() error
}

// LocalBus - 단일 프로세스용 채널 버스
type LocalBus struct {
	ch chan ExecutionSignal
}

func NewLocalBus() *LocalBus {
	return &LocalBus{ch: make(chan ExecutionSignal, 64)}
}

func (b *LocalBus) Publish(ctx context.Context, sig ExecutionSignal) error {
	select {
	case b.ch <- sig:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBus) Read(ctx context.Context) (ExecutionSignal, error) {
	select {
	case sig := <-b.ch:
		return sig, nil
	case <-ctx.Done():
		return ExecutionSignal{}, ctx.Err()
	}
}

func (b *LocalBus) Close() error { return nil }
