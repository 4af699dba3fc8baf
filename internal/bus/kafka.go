// Kafka 실행 버스 정의
//
// 환경변수:
//   - KAFKA_BROKERS: 브로커 목록 (쉼표 구분)
//   - KAFKA_EXECUTION_TOPIC: 실행 지시 토픽 (기본 alerts.execution)
//   - KAFKA_GROUP_ID: Executor 컨슈머 그룹 (기본 domain-sentry-executor)

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/domain-sentry/backend/internal/config"
)

const kafkaWriteTimeout = 10 * time.Second

// KafkaPublisher 구조체 정의
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(cfg config.BusConfig) (*KafkaPublisher, error) {
	brokers := parseBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}

	// 동기 쓰기 + 리더 ack로 적어도 1회 전달 보장
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.ExecutionTopic,
		Balancer:     &kafka.Hash{}, // alert_id 키 기준 파티셔닝
		WriteTimeout: kafkaWriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	log.Printf("kafka publisher configured brokers=%v topic=%s", brokers, cfg.ExecutionTopic)
	return &KafkaPublisher{writer: writer, topic: cfg.ExecutionTopic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, sig ExecutionSignal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal execution signal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sig.AlertID),
		Value: payload,
		Time:  sig.DecidedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish execution signal: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer 구조체 정의
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(cfg config.BusConfig) (*KafkaConsumer, error) {
	brokers := parseBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       cfg.ExecutionTopic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		StartOffset: kafka.FirstOffset,
	})

	log.Printf("kafka consumer configured brokers=%v topic=%s group=%s", brokers, cfg.ExecutionTopic, cfg.GroupID)
	return &KafkaConsumer{reader: reader}, nil
}

func (c *KafkaConsumer) Read(ctx context.Context) (ExecutionSignal, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return ExecutionSignal{}, fmt.Errorf("failed to read execution signal: %w", err)
	}

	var sig ExecutionSignal
	if err := json.Unmarshal(msg.Value, &sig); err != nil {
		return ExecutionSignal{}, fmt.Errorf("failed to unmarshal execution signal: %w", err)
	}
	return sig, nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func parseBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
