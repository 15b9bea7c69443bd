package llm

import (
    "log/slog"

    "bidwatch/internal/config"
    "bidwatch/internal/ports"
)

// Capabilities bundles every port the adapter serves.
type Capabilities interface {
    ports.ContentScorer
    ports.Narrator
    ports.Summarizer
    ports.Assistant
}

var (
    _ Capabilities = (*Agent)(nil)
    _ Capabilities = Unavailable{}
)

// FromConfig returns an Agent when an API key is configured and Unavailable
// otherwise.
func FromConfig(cfg config.LLMConfig) Capabilities {
    if !cfg.Enabled() {
        slog.Warn("LLM API key not set, external scoring disabled")
        return Unavailable{}
    }
    client, err := NewClient(Config{
        APIKey:         cfg.APIKey,
        BaseURL:        cfg.BaseURL,
        Model:          cfg.Model,
        ResponseFormat: cfg.ResponseFormat,
    })
    if err != nil {
        slog.Error("llm client init failed, external scoring disabled", "error", err)
        return Unavailable{}
    }
    agentCfg := DefaultAgentConfig()
    agentCfg.MaxRetries = cfg.MaxRetries
    if cfg.Timeout > 0 {
        agentCfg.Timeout = cfg.Timeout
    }
    slog.Info("llm client initialized", "model", client.Model(), "base_url", cfg.BaseURL, "response_format", cfg.ResponseFormat)
    return NewAgent(client, agentCfg)
}
