package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env         string
	ServiceName string
	OpsPort     int

	Kafka    KafkaConfig
	Scoring  ScoringConfig
	Window   WindowConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	Database DatabaseConfig
	History  HistoryConfig
	Cache    CacheConfig
	Log      LogConfig
}

// KafkaConfig describes the inbound event topics and the outbound score topic.
type KafkaConfig struct {
	Brokers            []string
	GroupID            string
	QuizAnswersTopic   string
	SessionEventsTopic string
	ScoresTopic        string
	MinBytes           int
	MaxBytes           int
	MaxWait            time.Duration
	BatchSize          int
	BatchTimeout       time.Duration
}

// ScoringConfig carries the weights and thresholds of the engagement score.
// Loaded once at startup and treated as immutable; weights are not validated
// to sum to 1.0 (operator responsibility).
type ScoringConfig struct {
	Weights    WeightConfig
	Thresholds ThresholdConfig
}

type WeightConfig struct {
	Accuracy  float64
	Dwell     float64
	Pacing    float64
	Attention float64
}

type ThresholdConfig struct {
	Alert  float64
	Green  float64
	Yellow float64

	// Dwell bounds on average time spent per answer.
	StrugglingMs float64
	RushingMs    float64

	// Pacing band around the expected answering rate.
	ExpectedQuestionsPerMinute float64
	PacingTolerance            float64

	// Behavioral pattern cutoffs.
	RapidSubmissionInterval time.Duration
	RapidSubmissionsMin     int
	ConsecutiveIncorrectMin int
}

// WindowConfig controls tumbling-window assignment and late-event tolerance.
type WindowConfig struct {
	Duration time.Duration
	Grace    time.Duration
}

// PipelineConfig tunes the sharded aggregation workers.
type PipelineConfig struct {
	ShardCount       int
	ShardBuffer      int
	EvictionInterval time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// HistoryConfig toggles the append-only score history sink.
type HistoryConfig struct {
	Enabled bool
}

// CacheConfig governs the latest-score cache consumed by the ops endpoint.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// A missing .env is fine, every key has a default. Viper reports an
	// explicit config file that does not exist as a plain path error, not
	// as ConfigFileNotFoundError.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.ServiceName = v.GetString("SERVICE_NAME")
	cfg.OpsPort = v.GetInt("OPS_PORT")

	cfg.Kafka = KafkaConfig{
		Brokers:            splitAndTrim(v.GetString("KAFKA_BROKERS")),
		GroupID:            v.GetString("KAFKA_GROUP_ID"),
		QuizAnswersTopic:   v.GetString("KAFKA_TOPIC_QUIZ_ANSWERS"),
		SessionEventsTopic: v.GetString("KAFKA_TOPIC_SESSION_EVENTS"),
		ScoresTopic:        v.GetString("KAFKA_TOPIC_ENGAGEMENT_SCORES"),
		MinBytes:           v.GetInt("KAFKA_MIN_BYTES"),
		MaxBytes:           v.GetInt("KAFKA_MAX_BYTES"),
		MaxWait:            parseDuration(v.GetString("KAFKA_MAX_WAIT"), 500*time.Millisecond),
		BatchSize:          v.GetInt("KAFKA_BATCH_SIZE"),
		BatchTimeout:       parseDuration(v.GetString("KAFKA_BATCH_TIMEOUT"), time.Second),
	}

	cfg.Scoring = ScoringConfig{
		Weights: WeightConfig{
			Accuracy:  v.GetFloat64("SCORING_WEIGHT_ACCURACY"),
			Dwell:     v.GetFloat64("SCORING_WEIGHT_DWELL"),
			Pacing:    v.GetFloat64("SCORING_WEIGHT_PACING"),
			Attention: v.GetFloat64("SCORING_WEIGHT_ATTENTION"),
		},
		Thresholds: ThresholdConfig{
			Alert:                      v.GetFloat64("SCORING_THRESHOLD_ALERT"),
			Green:                      v.GetFloat64("SCORING_THRESHOLD_GREEN"),
			Yellow:                     v.GetFloat64("SCORING_THRESHOLD_YELLOW"),
			StrugglingMs:               v.GetFloat64("SCORING_STRUGGLING_MS"),
			RushingMs:                  v.GetFloat64("SCORING_RUSHING_MS"),
			ExpectedQuestionsPerMinute: v.GetFloat64("SCORING_EXPECTED_QPM"),
			PacingTolerance:            v.GetFloat64("SCORING_PACING_TOLERANCE"),
			RapidSubmissionInterval:    parseDuration(v.GetString("SCORING_RAPID_SUBMISSION_INTERVAL"), 5*time.Second),
			RapidSubmissionsMin:        v.GetInt("SCORING_RAPID_SUBMISSIONS_MIN"),
			ConsecutiveIncorrectMin:    v.GetInt("SCORING_CONSECUTIVE_INCORRECT_MIN"),
		},
	}

	cfg.Window = WindowConfig{
		Duration: parseDuration(v.GetString("WINDOW_DURATION"), time.Minute),
		Grace:    parseDuration(v.GetString("WINDOW_GRACE"), 5*time.Second),
	}

	cfg.Pipeline = PipelineConfig{
		ShardCount:       v.GetInt("PIPELINE_SHARD_COUNT"),
		ShardBuffer:      v.GetInt("PIPELINE_SHARD_BUFFER"),
		EvictionInterval: parseDuration(v.GetString("PIPELINE_EVICTION_INTERVAL"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.History = HistoryConfig{
		Enabled: v.GetBool("ENABLE_SCORE_HISTORY"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_SCORE_CACHE"),
		TTL:     parseDuration(v.GetString("SCORE_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("SERVICE_NAME", "engagement-service")
	v.SetDefault("OPS_PORT", 8080)

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", "engagement-service")
	v.SetDefault("KAFKA_TOPIC_QUIZ_ANSWERS", "quiz.answers")
	v.SetDefault("KAFKA_TOPIC_SESSION_EVENTS", "session.events")
	v.SetDefault("KAFKA_TOPIC_ENGAGEMENT_SCORES", "engagement.scores")
	v.SetDefault("KAFKA_MIN_BYTES", 1)
	v.SetDefault("KAFKA_MAX_BYTES", 10*1024*1024)
	v.SetDefault("KAFKA_MAX_WAIT", "500ms")
	v.SetDefault("KAFKA_BATCH_SIZE", 100)
	v.SetDefault("KAFKA_BATCH_TIMEOUT", "1s")

	v.SetDefault("SCORING_WEIGHT_ACCURACY", 0.4)
	v.SetDefault("SCORING_WEIGHT_DWELL", 0.3)
	v.SetDefault("SCORING_WEIGHT_PACING", 0.3)
	v.SetDefault("SCORING_WEIGHT_ATTENTION", 0.0)

	v.SetDefault("SCORING_THRESHOLD_ALERT", 0.4)
	v.SetDefault("SCORING_THRESHOLD_GREEN", 0.7)
	v.SetDefault("SCORING_THRESHOLD_YELLOW", 0.4)
	v.SetDefault("SCORING_STRUGGLING_MS", 15000)
	v.SetDefault("SCORING_RUSHING_MS", 5000)
	v.SetDefault("SCORING_EXPECTED_QPM", 0.5)
	v.SetDefault("SCORING_PACING_TOLERANCE", 0.2)
	v.SetDefault("SCORING_RAPID_SUBMISSION_INTERVAL", "5s")
	v.SetDefault("SCORING_RAPID_SUBMISSIONS_MIN", 2)
	v.SetDefault("SCORING_CONSECUTIVE_INCORRECT_MIN", 3)

	v.SetDefault("WINDOW_DURATION", "60s")
	v.SetDefault("WINDOW_GRACE", "5s")

	v.SetDefault("PIPELINE_SHARD_COUNT", 8)
	v.SetDefault("PIPELINE_SHARD_BUFFER", 256)
	v.SetDefault("PIPELINE_EVICTION_INTERVAL", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edupulse_engagement")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_SCORE_HISTORY", false)
	v.SetDefault("ENABLE_SCORE_CACHE", false)
	v.SetDefault("SCORE_CACHE_TTL", "2m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
