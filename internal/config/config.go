package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the runtime knobs read from the environment. Load .env
// via godotenv before calling New.
type Config struct {
	DatabaseURL string
	AppHost     string

	CardL1TTL      time.Duration
	CardL1MaxItems int
	CardL2Enabled  bool

	ImportMaxDeactivateShare float64
	ImportDeactivateMissing  bool
	ImportPlanTTL            time.Duration

	SheetsCredentialsFile string
}

func New() *Config {
	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AppHost:     os.Getenv("APP_HOST"),

		CardL1TTL:      time.Duration(envInt("CARD_L1_TTL_SEC", 300)) * time.Second,
		CardL1MaxItems: envInt("CARD_L1_MAX_ITEMS", 5000),
		CardL2Enabled:  envBool("CARD_L2_ENABLED", true),

		ImportMaxDeactivateShare: envFloat("IMPORT_MAX_DEACTIVATE_SHARE", 0.5),
		ImportDeactivateMissing:  envBool("IMPORT_DEACTIVATE_MISSING", true),
		ImportPlanTTL:            time.Duration(envInt("IMPORT_PLAN_TTL_MIN", 240)) * time.Minute,

		SheetsCredentialsFile: os.Getenv("GOOGLE_SHEETS_CREDENTIALS"),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "True", "yes", "YES":
		return true
	case "0", "false", "False", "no", "NO":
		return false
	}
	return fallback
}
