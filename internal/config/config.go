package config

import (
    "fmt"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

type Config struct {
    Env             string
    ListenAddr      string
    DatabaseURL     string
    ScanWorkers     int
    ScanConcurrency int
    ProjectValue    float64 // default historical average when none is given
    LLM             LLMConfig
}

// LLMConfig points at an OpenAI-compatible chat endpoint.
type LLMConfig struct {
    APIKey     string
    BaseURL    string
    Model      string
    MaxRetries int
    Timeout    time.Duration
    // ResponseFormat is json_object or json_schema; only the latter sends a
    // strict schema, which not every endpoint and model accepts.
    ResponseFormat string
}

func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

func (c Config) IsProduction() bool { return c.Env == "production" }

func (c Config) IsDevelopment() bool { return c.Env == "development" }

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// Load reads configuration from the environment; in development a .env file
// is loaded first. A missing DATABASE_URL is reported but not fatal so callers
// can decide.
func Load() (Config, error) {
    if getenv("APP_ENV", "development") == "development" {
        _ = godotenv.Load(".env")
    }

    cfg := Config{
        Env:             getenv("APP_ENV", "development"),
        ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
        DatabaseURL:     os.Getenv("DATABASE_URL"),
        ScanWorkers:     getenvInt("SCAN_WORKERS", 0),
        ScanConcurrency: getenvInt("SCAN_CONCURRENCY", 4),
        ProjectValue:    getenvFloat("PROJECT_VALUE", 35_000_000),
        LLM: LLMConfig{
            APIKey:         getenv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
            BaseURL:        getenv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
            Model:          getenv("LLM_MODEL", "llama-3.1-8b-instant"),
            MaxRetries:     getenvInt("LLM_MAX_RETRIES", 2),
            Timeout:        getenvDuration("LLM_TIMEOUT", 20*time.Second),
            ResponseFormat: getenv("LLM_RESPONSE_FORMAT", "json_object"),
        },
    }
    if cfg.DatabaseURL == "" {
        return cfg, fmt.Errorf("DATABASE_URL not set")
    }
    return cfg, nil
}

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if out, err := strconv.Atoi(v); err == nil {
            return out
        }
    }
    return def
}

func getenvFloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if out, err := strconv.ParseFloat(v, 64); err == nil {
            return out
        }
    }
    return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if out, err := time.ParseDuration(v); err == nil {
            return out
        }
    }
    return def
}
