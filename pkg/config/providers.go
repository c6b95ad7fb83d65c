package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider describes one AI provider endpoint and its call budget.
type Provider struct {
	Name      string `yaml:"name"`
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Enabled   bool   `yaml:"enabled"`

	// Timeouts in seconds, used as the adaptive baseline.
	ConnectTimeout  float64 `yaml:"connect_timeout"`
	ResponseTimeout float64 `yaml:"response_timeout"`
	TotalTimeout    float64 `yaml:"total_timeout"`

	MaxRetries int     `yaml:"max_retries"`
	BaseDelay  float64 `yaml:"base_delay"` // seconds between retries before backoff

	// CostWeight is charged against the daily retry budget per retry.
	CostWeight float64 `yaml:"cost_weight"`
	// VoteWeight scales this provider's voice during fusion.
	VoteWeight float64 `yaml:"vote_weight"`

	RateLimitPerMin float64 `yaml:"rate_limit_per_min"`
}

// APIKey resolves the provider key from its configured env variable.
func (p Provider) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

type providerFile struct {
	Providers []Provider `yaml:"providers"`
}

// LoadProviders reads the YAML roster at path, or returns the built-in
// roster when path is empty.
func LoadProviders(path string) ([]Provider, error) {
	if path == "" {
		return DefaultProviders(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	var pf providerFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}
	if len(pf.Providers) == 0 {
		return nil, fmt.Errorf("providers file %s lists no providers", path)
	}
	for i := range pf.Providers {
		applyProviderDefaults(&pf.Providers[i])
	}
	return pf.Providers, nil
}

// DefaultProviders is the built-in roster with per-provider call budgets.
func DefaultProviders() []Provider {
	return []Provider{
		{
			Name: "deepseek", Endpoint: "https://api.deepseek.com/v1/chat/completions",
			Model: "deepseek-chat", APIKeyEnv: "DEEPSEEK_API_KEY", Enabled: true,
			ConnectTimeout: 15, ResponseTimeout: 25, TotalTimeout: 45,
			MaxRetries: 2, BaseDelay: 5, CostWeight: 1.2, VoteWeight: 0.75,
			RateLimitPerMin: 20,
		},
		{
			Name: "kimi", Endpoint: "https://api.moonshot.cn/v1/chat/completions",
			Model: "moonshot-v1-8k", APIKeyEnv: "KIMI_API_KEY", Enabled: true,
			ConnectTimeout: 12, ResponseTimeout: 22, TotalTimeout: 40,
			MaxRetries: 2, BaseDelay: 4, CostWeight: 1.3, VoteWeight: 0.80,
			RateLimitPerMin: 20,
		},
		{
			Name: "qwen", Endpoint: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
			Model: "qwen-plus", APIKeyEnv: "QWEN_API_KEY", Enabled: true,
			ConnectTimeout: 10, ResponseTimeout: 20, TotalTimeout: 35,
			MaxRetries: 2, BaseDelay: 3.5, CostWeight: 1.0, VoteWeight: 0.85,
			RateLimitPerMin: 30,
		},
		{
			Name: "openai", Endpoint: "https://api.openai.com/v1/chat/completions",
			Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY", Enabled: true,
			ConnectTimeout: 18, ResponseTimeout: 30, TotalTimeout: 50,
			MaxRetries: 1, BaseDelay: 6, CostWeight: 1.8, VoteWeight: 0.70,
			RateLimitPerMin: 15,
		},
	}
}

func applyProviderDefaults(p *Provider) {
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = 10
	}
	if p.ResponseTimeout <= 0 {
		p.ResponseTimeout = 20
	}
	if p.TotalTimeout <= 0 {
		p.TotalTimeout = 35
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 3
	}
	if p.CostWeight <= 0 {
		p.CostWeight = 1.0
	}
	if p.VoteWeight <= 0 {
		p.VoteWeight = 0.75
	}
	if p.RateLimitPerMin <= 0 {
		p.RateLimitPerMin = 20
	}
}
