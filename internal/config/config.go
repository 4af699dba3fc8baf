package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Monitor  MonitorConfig
	Agent    AgentConfig
	Alert    AlertConfig
	Slack    SlackConfig
	Teams    TeamsConfig
	Email    EmailConfig
	Callback CallbackConfig
	Artifact ArtifactConfig
	Bus      BusConfig
	Redis    RedisConfig
	Know     KnowledgeConfig
	Auth     AuthConfig
	Postgres PostgresConfig
	Server   ServerConfig
}

// MonitorConfig - Detector가 감시할 대상과 주기
type MonitorConfig struct {
	Target       string
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// AgentConfig - 진단/복구 Agent 런타임
type AgentConfig struct {
	BaseURL string
	ActorID string
	Timeout time.Duration

	// OAuth2 client credentials (설정 시 StaticToken보다 우선)
	TokenURL     string
	ClientID     string
	ClientSecret string
	StaticToken  string
}

// AlertConfig - Alert 레코드 정책
type AlertConfig struct {
	// TTL: 승인 없이 이 시간이 지나면 레코드 만료 (원본 워크플로우 기준 24h)
	TTL time.Duration

	// InlineLimit: 진단 텍스트가 이 길이를 넘으면 외부 저장소로 옮기고 참조만 보관
	InlineLimit int
}

type SlackConfig struct {
	BotToken      string
	ChannelID     string
	SigningSecret string
}

type TeamsConfig struct {
	WebhookURL string
}

type EmailConfig struct {
	Provider string // "resend" | "ses"
	From     string
	To       []string
}

// CallbackConfig - 일반 결정 콜백(/callbacks/decision)의 서명 검증
type CallbackConfig struct {
	SigningSecret string
	// PublicBaseURL: 이메일/Teams에 넣는 승인 링크의 베이스 URL
	PublicBaseURL string
}

type ArtifactConfig struct {
	Bucket string
	Region string
}

type BusConfig struct {
	KafkaBrokers   string
	ExecutionTopic string
	GroupID        string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type KnowledgeConfig struct {
	APIKey         string
	EmbeddingModel string
	TopK           int
}

type AuthConfig struct {
	JWTSecret    string
	JWTAccessTTL string
	OIDCIssuer   string
	OIDCAudience string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func Load() Config {
	return Config{
		Monitor: MonitorConfig{
			Target:       os.Getenv("MONITOR_TARGET"),
			Interval:     getduration("MONITOR_INTERVAL", 5*time.Minute),
			ProbeTimeout: getduration("MONITOR_PROBE_TIMEOUT", 10*time.Second),
		},
		Agent: AgentConfig{
			BaseURL:      os.Getenv("AGENT_URL"),
			ActorID:      getenv("AGENT_ACTOR_ID", "domain-sentry"),
			Timeout:      getduration("AGENT_TIMEOUT", 120*time.Second),
			TokenURL:     os.Getenv("AGENT_TOKEN_URL"),
			ClientID:     os.Getenv("AGENT_CLIENT_ID"),
			ClientSecret: os.Getenv("AGENT_CLIENT_SECRET"),
			StaticToken:  os.Getenv("AGENT_STATIC_TOKEN"),
		},
		Alert: AlertConfig{
			TTL:         getduration("ALERT_TTL", 24*time.Hour),
			InlineLimit: getint("ALERT_INLINE_LIMIT", 2000),
		},
		Slack: SlackConfig{
			BotToken:      os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID:     os.Getenv("SLACK_CHANNEL_ID"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		},
		Teams: TeamsConfig{
			WebhookURL: os.Getenv("TEAMS_WEBHOOK_URL"),
		},
		Email: EmailConfig{
			Provider: getenv("EMAIL_PROVIDER", "resend"),
			From:     os.Getenv("EMAIL_FROM"),
			To:       splitList(os.Getenv("EMAIL_TO")),
		},
		Callback: CallbackConfig{
			SigningSecret: os.Getenv("CALLBACK_SIGNING_SECRET"),
			PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		},
		Artifact: ArtifactConfig{
			Bucket: os.Getenv("S3_TRANSCRIPT_BUCKET"),
			Region: getenv("AWS_REGION", "ap-southeast-1"),
		},
		Bus: BusConfig{
			KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
			ExecutionTopic: getenv("KAFKA_EXECUTION_TOPIC", "alerts.execution"),
			GroupID:        getenv("KAFKA_GROUP_ID", "domain-sentry-executor"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Know: KnowledgeConfig{
			APIKey:         os.Getenv("AI_API_KEY"),
			EmbeddingModel: getenv("AI_EMBEDDING_MODEL", "text-embedding-004"),
			TopK:           getint("KNOWLEDGE_TOP_K", 3),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			JWTAccessTTL: getenv("JWT_ACCESS_TTL", "30m"),
			OIDCIssuer:   os.Getenv("OIDC_ISSUER"),
			OIDCAudience: os.Getenv("OIDC_AUDIENCE"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Server: ServerConfig{
			Addr:           getenv("SERVER_ADDR", ":8080"),
			AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getint(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
