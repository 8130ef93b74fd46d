// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is built once at
// startup and handed to each component explicitly; nothing reads it globally.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Site    SiteConfig    `mapstructure:"site" yaml:"site"`
	Speech  SpeechConfig  `mapstructure:"speech" yaml:"speech"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Control ControlConfig `mapstructure:"control" yaml:"control"`
}

// LoggerConfig defines all the settings for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal color names.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance driven by chromedp.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	HideWebdriver   bool     `mapstructure:"hide_webdriver" yaml:"hide_webdriver"`
	ExecPath        string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string `mapstructure:"args" yaml:"args"`
	Debug           bool     `mapstructure:"debug" yaml:"debug"`
}

// NetworkConfig bounds every blocking wait against the page.
type NetworkConfig struct {
	// RootWait bounds the wait for <body> before extraction.
	RootWait time.Duration `mapstructure:"root_wait" yaml:"root_wait"`
	// NavigationWait bounds the wait for <body> after loading a site page.
	NavigationWait time.Duration `mapstructure:"navigation_wait" yaml:"navigation_wait"`
	// InitialLoadWait bounds the very first load of the site.
	InitialLoadWait time.Duration `mapstructure:"initial_load_wait" yaml:"initial_load_wait"`

	SettleDelay   time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	ScrollPause   time.Duration `mapstructure:"scroll_pause" yaml:"scroll_pause"`
	ClickPause    time.Duration `mapstructure:"click_pause" yaml:"click_pause"`
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// AgentConfig holds settings for the turn orchestrator and its model.
type AgentConfig struct {
	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`
	// MemorySize is the number of turns retained in conversation memory.
	MemorySize int `mapstructure:"memory_size" yaml:"memory_size"`
	// PromptHistory is the number of recent turns surfaced to the model.
	PromptHistory int `mapstructure:"prompt_history" yaml:"prompt_history"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig defines the configuration for the inference client.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`

	ProbeTimeout     time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	ProbeTemperature float32       `mapstructure:"probe_temperature" yaml:"probe_temperature"`
	ProbeMaxTokens   int           `mapstructure:"probe_max_tokens" yaml:"probe_max_tokens"`

	// RateLimit is requests per second; zero disables limiting.
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	MaxRetryElapsed time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
}

// SiteConfig is the static description of the single website being narrated.
type SiteConfig struct {
	CompanyName string            `mapstructure:"company_name" yaml:"company_name"`
	BaseURL     string            `mapstructure:"base_url" yaml:"base_url"`
	Pages       []string          `mapstructure:"pages" yaml:"pages"`
	Services    []string          `mapstructure:"services" yaml:"services"`
	Paths       map[string]string `mapstructure:"paths" yaml:"paths"`
}

// SpeechConfig selects how utterances are captured and replies voiced.
type SpeechConfig struct {
	// Input is "console" (stdin lines) or "command" (external recorder + HTTP push-to-talk).
	Input             string        `mapstructure:"input" yaml:"input"`
	ListenTimeout     time.Duration `mapstructure:"listen_timeout" yaml:"listen_timeout"`
	PhraseLimit       time.Duration `mapstructure:"phrase_limit" yaml:"phrase_limit"`
	RecordCommand     []string      `mapstructure:"record_command" yaml:"record_command"`
	TranscribeCommand []string      `mapstructure:"transcribe_command" yaml:"transcribe_command"`
	Voice             VoiceConfig   `mapstructure:"voice" yaml:"voice"`
}

// VoiceConfig configures text-to-speech output.
type VoiceConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Command   string `mapstructure:"command" yaml:"command"`
	Rate      int    `mapstructure:"rate" yaml:"rate"`
	ChunkSize int    `mapstructure:"chunk_size" yaml:"chunk_size"`
}

// EngineConfig configures the turn queue.
type EngineConfig struct {
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// ControlConfig configures the HTTP push-to-talk and metrics surface.
type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sitevoice")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.hide_webdriver", true)
	v.SetDefault("browser.debug", false)

	// -- Network --
	v.SetDefault("network.root_wait", "5s")
	v.SetDefault("network.navigation_wait", "10s")
	v.SetDefault("network.initial_load_wait", "15s")
	v.SetDefault("network.settle_delay", "2s")
	v.SetDefault("network.scroll_pause", "1s")
	v.SetDefault("network.click_pause", "2s")
	v.SetDefault("network.launch_timeout", "30s")

	// -- Agent --
	v.SetDefault("agent.memory_size", 8)
	v.SetDefault("agent.prompt_history", 3)
	v.SetDefault("agent.llm.provider", string(ProviderGroq))
	v.SetDefault("agent.llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("agent.llm.endpoint", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("agent.llm.api_timeout", "30s")
	v.SetDefault("agent.llm.temperature", 0.7)
	v.SetDefault("agent.llm.top_p", 1.0)
	v.SetDefault("agent.llm.max_tokens", 400)
	v.SetDefault("agent.llm.probe_timeout", "10s")
	v.SetDefault("agent.llm.probe_temperature", 0.1)
	v.SetDefault("agent.llm.probe_max_tokens", 20)
	v.SetDefault("agent.llm.rate_limit", 1.0)
	v.SetDefault("agent.llm.rate_burst", 2)
	v.SetDefault("agent.llm.max_retry_elapsed", "10s")

	// -- Site --
	v.SetDefault("site.company_name", "I Knowledge Factory")
	v.SetDefault("site.base_url", "https://www.ikf.co.in/")
	v.SetDefault("site.pages", []string{"home", "about", "services", "career", "contact", "portfolio", "blog", "team"})
	v.SetDefault("site.services", []string{"web development", "mobile app development", "digital marketing", "IT consulting"})
	v.SetDefault("site.paths", DefaultPaths())

	// -- Speech --
	v.SetDefault("speech.input", "console")
	v.SetDefault("speech.listen_timeout", "1s")
	v.SetDefault("speech.phrase_limit", "10s")
	v.SetDefault("speech.voice.enabled", true)
	v.SetDefault("speech.voice.command", "say")
	v.SetDefault("speech.voice.rate", 200)
	v.SetDefault("speech.voice.chunk_size", 200)

	// -- Engine --
	v.SetDefault("engine.queue_size", 4)

	// -- Control --
	v.SetDefault("control.enabled", false)
	v.SetDefault("control.addr", "127.0.0.1:8089")
}

// DefaultPaths is the page key to URL path table of the target site.
func DefaultPaths() map[string]string {
	return map[string]string{
		"home":      "/",
		"about":     "/about",
		"services":  "/services",
		"career":    "/career",
		"careers":   "/career",
		"contact":   "/contact",
		"portfolio": "/portfolio",
		"blog":      "/blog",
		"team":      "/team",
	}
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("agent.llm.api_key", "SITEVOICE_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the provider's conventional variable.
	if cfg.Agent.LLM.APIKey == "" {
		cfg.Agent.LLM.APIKey = os.Getenv(cfg.Agent.LLM.Provider.KeyEnv())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// KeyEnv names the environment variable conventionally holding the provider's key.
func (p LLMProvider) KeyEnv() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

// Validate checks the configuration for required fields and sane values.
// Credentials are not checked here; see LLMConfig.RequireCredentials.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site configuration invalid: %w", err)
	}
	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech configuration invalid: %w", err)
	}
	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("engine.queue_size must be a positive integer")
	}
	if c.Network.RootWait <= 0 || c.Network.NavigationWait <= 0 || c.Network.InitialLoadWait <= 0 {
		return fmt.Errorf("network waits must be positive durations")
	}
	if c.Control.Enabled && c.Control.Addr == "" {
		return fmt.Errorf("control.addr is required when the control server is enabled")
	}
	return nil
}

// Validate checks the agent settings.
func (a *AgentConfig) Validate() error {
	if a.MemorySize <= 0 {
		return fmt.Errorf("memory_size must be a positive integer")
	}
	if a.PromptHistory < 0 || a.PromptHistory > a.MemorySize {
		return fmt.Errorf("prompt_history must be between 0 and memory_size")
	}
	switch a.LLM.Provider {
	case ProviderGroq:
		if a.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required for provider %q", a.LLM.Provider)
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("unsupported llm.provider %q", a.LLM.Provider)
	}
	if a.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if a.LLM.APITimeout <= 0 || a.LLM.ProbeTimeout <= 0 {
		return fmt.Errorf("llm timeouts must be positive durations")
	}
	if a.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be a positive integer")
	}
	return nil
}

// RequireCredentials reports a missing API key. Only commands that talk to
// the model call it.
func (l LLMConfig) RequireCredentials() error {
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("no API key configured for provider %q; set %s or agent.llm.api_key", l.Provider, l.Provider.KeyEnv())
	}
	return nil
}

// Validate checks the site description.
func (s *SiteConfig) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", s.BaseURL)
	}
	if len(s.Pages) == 0 {
		return fmt.Errorf("pages must list at least one page")
	}
	if len(s.Paths) == 0 {
		return fmt.Errorf("paths must map at least one page")
	}
	return nil
}

// Validate checks the speech settings.
func (s *SpeechConfig) Validate() error {
	switch s.Input {
	case "console":
	case "command":
		if len(s.RecordCommand) == 0 || len(s.TranscribeCommand) == 0 {
			return fmt.Errorf("record_command and transcribe_command are required for input %q", s.Input)
		}
	default:
		return fmt.Errorf("unsupported input %q", s.Input)
	}
	if s.Voice.ChunkSize <= 0 {
		return fmt.Errorf("voice.chunk_size must be a positive integer")
	}
	return nil
}
