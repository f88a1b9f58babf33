package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML service configuration. Secrets are never stored in the
// file; API keys come from the environment.
type Config struct {
	Provider string `yaml:"provider"`

	Anthropic struct {
		Model string `yaml:"model"`
	} `yaml:"anthropic"`

	OpenAI struct {
		Model string `yaml:"model"`
	} `yaml:"openai"`

	Generation struct {
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		TopP        float32 `yaml:"top_p"`
	} `yaml:"generation"`

	RateLimit struct {
		InitialTPM float64 `yaml:"initial_tpm"`
		MaxTPM     float64 `yaml:"max_tpm"`
	} `yaml:"rate_limit"`

	Mongo struct {
		URI                 string `yaml:"uri"`
		Database            string `yaml:"database"`
		KnowledgeCollection string `yaml:"knowledge_collection"`
		Bucket              string `yaml:"bucket"`
		PublicBaseURL       string `yaml:"public_base_url"`
	} `yaml:"mongo"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Workflow struct {
		DisableQuestions   bool     `yaml:"disable_questions"`
		ConfidenceSkip     float64  `yaml:"confidence_skip"`
		FramingTypes       []string `yaml:"framing_types"`
		FramingCollections []string `yaml:"framing_collections"`
	} `yaml:"workflow"`
}

// LoadConfig reads and validates the YAML configuration file. A missing path
// yields the defaults so the service can run from environment variables
// alone.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-5"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 4096
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		return errors.New("mongo.database is required when mongo.uri is set")
	}
	return nil
}

// apiKey resolves the provider API key from the environment.
func (c *Config) apiKey() (string, error) {
	var envVar string
	switch c.Provider {
	case "anthropic":
		envVar = "ANTHROPIC_API_KEY"
	case "openai":
		envVar = "OPENAI_API_KEY"
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s is not set", envVar)
	}
	return key, nil
}
