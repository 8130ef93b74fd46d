// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "sitevoice", cfg.Logger.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Network.RootWait)
	assert.Equal(t, 10*time.Second, cfg.Network.NavigationWait)
	assert.Equal(t, 15*time.Second, cfg.Network.InitialLoadWait)
	assert.Equal(t, 2*time.Second, cfg.Network.SettleDelay)

	assert.Equal(t, ProviderGroq, cfg.Agent.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Agent.LLM.Model)
	assert.Equal(t, "https://api.groq.com/openai/v1/chat/completions", cfg.Agent.LLM.Endpoint)
	assert.InDelta(t, 0.7, cfg.Agent.LLM.Temperature, 1e-6)
	assert.Equal(t, 400, cfg.Agent.LLM.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Agent.LLM.APITimeout)
	assert.Equal(t, 10*time.Second, cfg.Agent.LLM.ProbeTimeout)
	assert.Equal(t, 20, cfg.Agent.LLM.ProbeMaxTokens)
	assert.Equal(t, 8, cfg.Agent.MemorySize)
	assert.Equal(t, 3, cfg.Agent.PromptHistory)

	assert.Equal(t, "I Knowledge Factory", cfg.Site.CompanyName)
	assert.Equal(t, "https://www.ikf.co.in/", cfg.Site.BaseURL)
	assert.Equal(t, []string{"home", "about", "services", "career", "contact", "portfolio", "blog", "team"}, cfg.Site.Pages)
	assert.Equal(t, "/career", cfg.Site.Paths["careers"])
	assert.Equal(t, "/", cfg.Site.Paths["home"])

	assert.Equal(t, "console", cfg.Speech.Input)
	assert.Equal(t, time.Second, cfg.Speech.ListenTimeout)
	assert.Equal(t, 10*time.Second, cfg.Speech.PhraseLimit)
	assert.Equal(t, 200, cfg.Speech.Voice.Rate)
	assert.Equal(t, 200, cfg.Speech.Voice.ChunkSize)

	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"queue size", func(c *Config) { c.Engine.QueueSize = 0 }, "engine.queue_size must be a positive integer"},
		{"root wait", func(c *Config) { c.Network.RootWait = 0 }, "network waits must be positive durations"},
		{"memory size", func(c *Config) { c.Agent.MemorySize = 0 }, "memory_size must be a positive integer"},
		{"prompt history", func(c *Config) { c.Agent.PromptHistory = 9 }, "prompt_history must be between 0 and memory_size"},
		{"provider", func(c *Config) { c.Agent.LLM.Provider = "openai" }, `unsupported llm.provider "openai"`},
		{"groq endpoint", func(c *Config) { c.Agent.LLM.Endpoint = "" }, "llm.endpoint is required"},
		{"model", func(c *Config) { c.Agent.LLM.Model = "" }, "llm.model is required"},
		{"base url", func(c *Config) { c.Site.BaseURL = "ikf.co.in" }, "base_url must be an absolute http(s) URL"},
		{"pages", func(c *Config) { c.Site.Pages = nil }, "pages must list at least one page"},
		{"input mode", func(c *Config) { c.Speech.Input = "microphone" }, `unsupported input "microphone"`},
		{"command input", func(c *Config) { c.Speech.Input = "command" }, "record_command and transcribe_command are required"},
		{"chunk size", func(c *Config) { c.Speech.Voice.ChunkSize = 0 }, "voice.chunk_size must be a positive integer"},
		{"control addr", func(c *Config) { c.Control.Enabled = true; c.Control.Addr = "" }, "control.addr is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("Gemini Needs No Endpoint", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Agent.LLM.Provider = ProviderGemini
		cfg.Agent.LLM.Endpoint = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestRequireCredentials(t *testing.T) {
	llm := LLMConfig{Provider: ProviderGroq}
	err := llm.RequireCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")

	llm.Provider = ProviderGemini
	assert.Contains(t, llm.RequireCredentials().Error(), "GEMINI_API_KEY")

	llm.APIKey = "key"
	assert.NoError(t, llm.RequireCredentials())
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
site:
  company_name: "Acme"
  base_url: "https://acme.test"
  pages: ["home", "career"]
engine:
  queue_size: 2
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "Acme", cfg.Site.CompanyName)
		assert.Equal(t, []string{"home", "career"}, cfg.Site.Pages)
		assert.Equal(t, 2, cfg.Engine.QueueSize)
		// Defaults still apply to untouched keys.
		assert.Equal(t, "info", cfg.Logger.Level)
		assert.Equal(t, "/contact", cfg.Site.Paths["contact"])
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("engine.queue_size", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "engine.queue_size must be a positive integer")
	})

	t.Run("Provider Key Fallback", func(t *testing.T) {
		t.Setenv("SITEVOICE_LLM_API_KEY", "")
		t.Setenv("GROQ_API_KEY", "gsk_from_env")

		v := viper.New()
		SetDefaults(v)
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "gsk_from_env", cfg.Agent.LLM.APIKey)
	})

	t.Run("Explicit Key Wins", func(t *testing.T) {
		t.Setenv("SITEVOICE_LLM_API_KEY", "gsk_explicit")
		t.Setenv("GROQ_API_KEY", "gsk_from_env")

		v := viper.New()
		SetDefaults(v)
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "gsk_explicit", cfg.Agent.LLM.APIKey)
	})

	t.Run("Gemini Key Fallback", func(t *testing.T) {
		t.Setenv("SITEVOICE_LLM_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		v := viper.New()
		SetDefaults(v)
		v.Set("agent.llm.provider", "gemini")
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "gemini-key", cfg.Agent.LLM.APIKey)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/sitevoice.log
network:
  settle_delay: 500ms
speech:
  input: command
  record_command: ["sox", "-d", "-t", "wav", "-"]
  transcribe_command: ["whisper-cli", "-"]
site:
  paths:
    jobs: /career
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/sitevoice.log", cfg.Logger.LogFile)
	assert.Equal(t, 500*time.Millisecond, cfg.Network.SettleDelay)
	assert.Equal(t, []string{"sox", "-d", "-t", "wav", "-"}, cfg.Speech.RecordCommand)
	assert.Equal(t, "/career", cfg.Site.Paths["jobs"])
	assert.NoError(t, cfg.Validate())
}
