package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the decision core.
type Config struct {
	Port    string
	DBPath  string
	LogPath string

	// Symbols traded by the decision loop.
	Symbols          []string
	DecisionInterval int // seconds between decision cycles per symbol

	// Execution
	ExecutionEnabled bool
	DryRun           bool

	// OKX credentials
	OKXBaseURL    string
	OKXAPIKey     string
	OKXAPISecret  string
	OKXPassphrase string
	OKXSimulated  bool

	// AI providers
	ProvidersPath string  // YAML roster; empty means built-in defaults
	MaxDailyCost  float64 // global retry budget shared by all providers

	// Fusion policy
	StrongConsensus float64
	WeakConsensus   float64
	MinDiversity    float64

	// Position sizing
	BaseOrderSize   float64
	MinOrderSize    float64
	MaxPositionSize float64
	AccountRiskPct  float64 // fraction of balance risked per trade
	StopDistancePct float64 // assumed stop distance for risk sizing

	// Auth
	JWTSecret     string
	AdminUser     string
	AdminPassword string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8090"),
		DBPath:           getEnv("DB_PATH", "./data/alphapilot.db"),
		LogPath:          getEnv("LOG_PATH", "./logs/alphapilot.log"),
		Symbols:          splitAndTrim(getEnv("SYMBOLS", "BTC-USDT-SWAP,ETH-USDT-SWAP")),
		DecisionInterval: getEnvInt("DECISION_INTERVAL_SEC", 300),
		ExecutionEnabled: getEnv("EXECUTION_ENABLED", "false") == "true",
		DryRun:           getEnv("DRY_RUN", "true") == "true",
		OKXBaseURL:       getEnv("OKX_BASE_URL", "https://www.okx.com"),
		OKXAPIKey:        os.Getenv("OKX_API_KEY"),
		OKXAPISecret:     os.Getenv("OKX_API_SECRET"),
		OKXPassphrase:    os.Getenv("OKX_PASSPHRASE"),
		OKXSimulated:     getEnv("OKX_SIMULATED", "true") == "true",
		ProvidersPath:    getEnv("PROVIDERS_PATH", ""),
		MaxDailyCost:     getEnvFloat("MAX_DAILY_RETRY_COST", 150.0),
		StrongConsensus:  getEnvFloat("FUSION_STRONG_CONSENSUS", 0.7),
		WeakConsensus:    getEnvFloat("FUSION_WEAK_CONSENSUS", 0.6),
		MinDiversity:     getEnvFloat("FUSION_MIN_DIVERSITY", 0.3),
		BaseOrderSize:    getEnvFloat("BASE_ORDER_SIZE", 0.1),
		MinOrderSize:     getEnvFloat("MIN_ORDER_SIZE", 0.001),
		MaxPositionSize:  getEnvFloat("MAX_POSITION_SIZE", 1.0),
		AccountRiskPct:   getEnvFloat("ACCOUNT_RISK_PCT", 0.02),
		StopDistancePct:  getEnvFloat("STOP_DISTANCE_PCT", 0.02),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret"),
		AdminUser:        getEnv("ADMIN_USER", "admin"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
