package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (선택, 분산 Rate Limit용)
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Battle
	BattleQuestionCount int
	BattleScoreReward   int
	BattleTimeout       time.Duration
	BattleSweepInterval time.Duration

	// Invitation
	InvitationTTL           time.Duration
	InvitationSweepInterval time.Duration
	InvitationSendLimit     int
	InvitationSendWindow    time.Duration
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration:       parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),
		CORSAllowedOrigins:  strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		BattleQuestionCount: parseInt(getEnv("BATTLE_QUESTION_COUNT", "10"), 10),
		BattleScoreReward:   parseInt(getEnv("BATTLE_SCORE_REWARD", "10"), 10),
		BattleTimeout:       parseDuration(getEnv("BATTLE_TIMEOUT", "10m"), 10*time.Minute),
		BattleSweepInterval: parseDuration(getEnv("BATTLE_SWEEP_INTERVAL", "30s"), 30*time.Second),

		InvitationTTL:           parseDuration(getEnv("INVITATION_TTL", "5m"), 5*time.Minute),
		InvitationSweepInterval: parseDuration(getEnv("INVITATION_SWEEP_INTERVAL", "1m"), time.Minute),
		InvitationSendLimit:     parseInt(getEnv("INVITATION_SEND_LIMIT", "3"), 3),
		InvitationSendWindow:    parseDuration(getEnv("INVITATION_SEND_WINDOW", "1m"), time.Minute),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
