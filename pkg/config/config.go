package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full pipeline configuration, supplied at construction.
// Load reads it from the environment; hosts embedding the pipeline as a
// library can also build it directly.
type Config struct {
	Environment string
	LogLevel    string

	Risk     RiskConfig
	Executor ExecutorConfig
	Slippage SlippageConfig
	Router   RouterConfig

	Exchange struct {
		Name    string
		APIKey  string
		Secret  string
		Testnet bool
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

// RiskConfig holds the risk engine's numeric limits and bounds.
type RiskConfig struct {
	// Hard position limits, all fractions of portfolio value except
	// MaxLeverage which is a multiple.
	MaxExposureTotal     float64
	MaxExposureSymbol    float64
	MaxSectorExposure    float64
	MaxLeverage          float64
	MaxConcentrationTop5 float64

	// Tail risk
	VaRConfidence float64 // e.g. 0.95
	MaxVaRPct     float64 // reject when VaR > portfolio * MaxVaRPct

	// Kelly sizing bounds
	KellyMin     float64
	KellyMax     float64
	KellyDefault float64 // fraction used when inputs are invalid

	// Cooldown triggers
	MaxDrawdown       float64
	MaxLosingStreak   int
	CooldownHours     float64
	DrawdownThreshold float64 // Kelly drawdown-decay kicks in above this

	// Hedging
	BetaThreshold    float64
	HedgeRatioTarget float64
}

// ExecutorConfig holds order-batching parameters.
type ExecutorConfig struct {
	BatchWindow time.Duration
	RTHOnly     bool
	ExchangeTZ  string // IANA zone of the exchange, e.g. "America/New_York"
}

// SlippageConfig holds slippage-model parameters.
type SlippageConfig struct {
	BaseBps              float64
	VolumeImpactFactor   float64
	VolatilityMultiplier float64
}

// RouterConfig holds order-routing parameters.
type RouterConfig struct {
	VolatilityThreshold float64 // annualized, above which limit orders are preferred
	StopATRMultiple     float64
	TargetATRMultiple   float64
}

// DefaultRiskConfig returns conservative defaults for the risk engine.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxExposureTotal:     0.80,
		MaxExposureSymbol:    0.10,
		MaxSectorExposure:    0.30,
		MaxLeverage:          2.0,
		MaxConcentrationTop5: 0.60,
		VaRConfidence:        0.95,
		MaxVaRPct:            0.03,
		KellyMin:             0.01,
		KellyMax:             0.25,
		KellyDefault:         0.02,
		MaxDrawdown:          0.08,
		MaxLosingStreak:      5,
		CooldownHours:        24,
		DrawdownThreshold:    0.05,
		BetaThreshold:        0.7,
		HedgeRatioTarget:     0.5,
	}
}

// DefaultExecutorConfig returns defaults for the order executor.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		BatchWindow: 30 * time.Second,
		RTHOnly:     true,
		ExchangeTZ:  "America/New_York",
	}
}

// DefaultSlippageConfig returns defaults for the slippage model.
func DefaultSlippageConfig() SlippageConfig {
	return SlippageConfig{
		BaseBps:              5.0,
		VolumeImpactFactor:   10.0,
		VolatilityMultiplier: 2.0,
	}
}

// DefaultRouterConfig returns defaults for the order router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		VolatilityThreshold: 0.30,
		StopATRMultiple:     2.0,
		TargetATRMultiple:   3.0,
	}
}

// Load builds a Config from the environment, picking up a .env file
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Risk:        DefaultRiskConfig(),
		Executor:    DefaultExecutorConfig(),
		Slippage:    DefaultSlippageConfig(),
		Router:      DefaultRouterConfig(),
	}

	cfg.Risk.MaxExposureTotal = getEnvFloat("RISK_MAX_EXPOSURE_TOTAL", cfg.Risk.MaxExposureTotal)
	cfg.Risk.MaxExposureSymbol = getEnvFloat("RISK_MAX_EXPOSURE_SYMBOL", cfg.Risk.MaxExposureSymbol)
	cfg.Risk.MaxSectorExposure = getEnvFloat("RISK_MAX_SECTOR_EXPOSURE", cfg.Risk.MaxSectorExposure)
	cfg.Risk.MaxLeverage = getEnvFloat("RISK_MAX_LEVERAGE", cfg.Risk.MaxLeverage)
	cfg.Risk.MaxConcentrationTop5 = getEnvFloat("RISK_MAX_CONCENTRATION_TOP5", cfg.Risk.MaxConcentrationTop5)
	cfg.Risk.VaRConfidence = getEnvFloat("RISK_VAR_CONFIDENCE", cfg.Risk.VaRConfidence)
	cfg.Risk.MaxVaRPct = getEnvFloat("RISK_MAX_VAR_PCT", cfg.Risk.MaxVaRPct)
	cfg.Risk.KellyMin = getEnvFloat("RISK_KELLY_MIN", cfg.Risk.KellyMin)
	cfg.Risk.KellyMax = getEnvFloat("RISK_KELLY_MAX", cfg.Risk.KellyMax)
	cfg.Risk.KellyDefault = getEnvFloat("RISK_KELLY_DEFAULT", cfg.Risk.KellyDefault)
	cfg.Risk.MaxDrawdown = getEnvFloat("RISK_MAX_DRAWDOWN", cfg.Risk.MaxDrawdown)
	cfg.Risk.MaxLosingStreak = getEnvInt("RISK_MAX_LOSING_STREAK", cfg.Risk.MaxLosingStreak)
	cfg.Risk.CooldownHours = getEnvFloat("RISK_COOLDOWN_HOURS", cfg.Risk.CooldownHours)

	cfg.Executor.BatchWindow = getEnvDuration("EXEC_BATCH_WINDOW", cfg.Executor.BatchWindow)
	cfg.Executor.RTHOnly = getEnvBool("EXEC_RTH_ONLY", cfg.Executor.RTHOnly)
	cfg.Executor.ExchangeTZ = getEnv("EXEC_EXCHANGE_TZ", cfg.Executor.ExchangeTZ)

	cfg.Exchange.Name = getEnv("EXCHANGE_NAME", "paper")
	cfg.Exchange.APIKey = getEnv("EXCHANGE_API_KEY", "")
	cfg.Exchange.Secret = getEnv("EXCHANGE_SECRET", "")
	cfg.Exchange.Testnet = getEnvBool("EXCHANGE_TESTNET", true)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
