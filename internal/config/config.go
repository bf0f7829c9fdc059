package config

import (
	"crypto/subtle"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CLIOptions holds command-line argument overrides
type CLIOptions struct {
	DatalogPath  string // -datalog: path to the Sniper datalog file
	Vehicle      string // -vehicle: vehicle ID from garage.json
	GarageConfig string // -garage-config: path to garage.json
	YAMLOut      string // -yaml-out: write the parameter doc to this path
	TimeSlip     string // -timeslip: record a slip as "ET@MPH[,60ft]"
	Sample       bool   // -sample: analyze a generated sample pass instead of a file
	ListVehicles bool   // -list-vehicles: list garage vehicles and exit
	ShowHelp     bool   // -help: show usage
	ShowVersion  bool   // -version: show version
}

// ParseCLI parses command-line arguments and returns CLIOptions
func ParseCLI() *CLIOptions {
	opts := &CLIOptions{}

	flag.StringVar(&opts.DatalogPath, "datalog", "", "Path to Sniper datalog file (.csv, .dl, .dlz)")
	flag.StringVar(&opts.Vehicle, "vehicle", "", "Vehicle ID from garage.json")
	flag.StringVar(&opts.GarageConfig, "garage-config", "", "Path to garage.json configuration file")
	flag.StringVar(&opts.YAMLOut, "yaml-out", "", "Write the Sniper parameter doc as YAML to this path")
	flag.StringVar(&opts.TimeSlip, "timeslip", "", "Record a time slip for the vehicle as ET@MPH[,60ft] (e.g. 11.65@118.2,1.68)")
	flag.BoolVar(&opts.Sample, "sample", false, "Analyze a generated sample pass instead of a datalog file")
	flag.BoolVar(&opts.ListVehicles, "list-vehicles", false, "List vehicles from garage.json and exit")
	flag.BoolVar(&opts.ShowHelp, "help", false, "Show usage information")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version information")

	// Custom usage message
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Sniper Tuner - Holley Sniper datalog analysis for drag racing\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nExamples:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s -datalog pass1.csv\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -datalog pass1.dlz -vehicle camaro -yaml-out tune.yaml\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -sample\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -datalog pass2.csv -vehicle camaro -timeslip \"11.65@118.2,1.68\"\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -list-vehicles\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "\nMulti-vehicle garage:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  Create garage.json with vehicle profiles.\n")
		_, _ = fmt.Fprintf(os.Stderr, "  Use -vehicle to select which vehicle the pass belongs to.\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment variables can be set in .env file or exported directly.\n")
		_, _ = fmt.Fprintf(os.Stderr, "CLI arguments override environment variables.\n")
	}

	flag.Parse()

	return opts
}

// PrintUsage prints the command-line usage information
func PrintUsage() {
	flag.Usage()
}

// Config holds all application configuration
type Config struct {
	// Datalog input
	DatalogPath  string
	MaxLogSizeMB int

	// Garage
	GarageConfigPath string // Path to garage.json ("" means auto-detect)
	Vehicle          string // Selected vehicle ID ("" means garage default)

	// Analysis thresholds
	WOTTPSThresholdPct float64
	WOTMinSamples      int

	// Narration (LLM) settings
	EnableNarration bool
	LLMProvider     string // "anthropic" (default) or "ollama"
	AnthropicAPIKey string
	ClaudeModel     string
	OllamaBaseURL   string // e.g., "http://localhost:11434"
	OllamaModel     string // e.g., "llama3.3:latest"

	// Telegram
	EnableTelegram         bool
	TelegramBotToken       string
	TelegramArchiveChannel int64
	TelegramAlertsChannel  int64 // Optional

	// Application
	LogLevel       string
	EnableDatabase bool
	DatabasePath   string
	HistoryDays    int

	// Proxy
	HTTPProxy  string
	HTTPSProxy string

	// AI request settings
	AITimeoutSeconds int
	AIMaxTokens      int
}

// Load loads configuration from .env file and environment variables
// Priority: .env file > OS environment variables
// For CLI overrides, use LoadWithCLI instead
func Load() (*Config, error) {
	return LoadWithCLI(nil)
}

// LoadWithCLI loads configuration with CLI argument overrides
// Priority: CLI args > .env file > OS environment variables
func LoadWithCLI(cli *CLIOptions) (*Config, error) {
	// Set up viper first to read OS environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env file to override OS environment variables
	// godotenv.Load() sets OS env vars from .env, which viper will then read
	_ = godotenv.Load()

	// Set defaults
	setDefaults()

	config := &Config{
		// Datalog settings
		DatalogPath:  viper.GetString("DATALOG_PATH"),
		MaxLogSizeMB: viper.GetInt("MAX_LOG_SIZE_MB"),

		// Garage settings
		GarageConfigPath: viper.GetString("GARAGE_CONFIG_PATH"),

		// Analysis thresholds
		WOTTPSThresholdPct: viper.GetFloat64("WOT_TPS_THRESHOLD_PCT"),
		WOTMinSamples:      viper.GetInt("WOT_MIN_SAMPLES"),

		// Narration settings
		EnableNarration: viper.GetBool("ENABLE_NARRATION"),
		LLMProvider:     viper.GetString("LLM_PROVIDER"),
		AnthropicAPIKey: viper.GetString("ANTHROPIC_API_KEY"),
		ClaudeModel:     viper.GetString("CLAUDE_MODEL"),
		OllamaBaseURL:   viper.GetString("OLLAMA_BASE_URL"),
		OllamaModel:     viper.GetString("OLLAMA_MODEL"),

		// Telegram settings
		EnableTelegram:         viper.GetBool("ENABLE_TELEGRAM"),
		TelegramBotToken:       viper.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramArchiveChannel: viper.GetInt64("TELEGRAM_CHANNEL_ARCHIVE_ID"),
		TelegramAlertsChannel:  viper.GetInt64("TELEGRAM_CHANNEL_ALERTS_ID"),

		// Application settings
		LogLevel:         viper.GetString("LOG_LEVEL"),
		EnableDatabase:   viper.GetBool("ENABLE_DATABASE"),
		DatabasePath:     viper.GetString("DATABASE_PATH"),
		HistoryDays:      viper.GetInt("HISTORY_DAYS"),
		HTTPProxy:        viper.GetString("HTTP_PROXY"),
		HTTPSProxy:       viper.GetString("HTTPS_PROXY"),
		AITimeoutSeconds: viper.GetInt("AI_TIMEOUT_SECONDS"),
		AIMaxTokens:      viper.GetInt("AI_MAX_TOKENS"),
	}

	// Apply CLI overrides (highest priority)
	if cli != nil {
		if cli.DatalogPath != "" {
			config.DatalogPath = cli.DatalogPath
		}
		if cli.Vehicle != "" {
			config.Vehicle = cli.Vehicle
		}
		if cli.GarageConfig != "" {
			config.GarageConfigPath = cli.GarageConfig
		}
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Datalog defaults
	viper.SetDefault("MAX_LOG_SIZE_MB", 10)

	// Analysis defaults
	viper.SetDefault("WOT_TPS_THRESHOLD_PCT", 95.0)
	viper.SetDefault("WOT_MIN_SAMPLES", 4)

	// Narration defaults
	viper.SetDefault("ENABLE_NARRATION", false)
	viper.SetDefault("LLM_PROVIDER", "anthropic")
	viper.SetDefault("CLAUDE_MODEL", "claude-sonnet-4-5-20250929")
	viper.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	viper.SetDefault("OLLAMA_MODEL", "llama3.3:latest")

	// Telegram defaults
	viper.SetDefault("ENABLE_TELEGRAM", false)

	// Application defaults
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ENABLE_DATABASE", true)
	viper.SetDefault("DATABASE_PATH", "./data/sessions.db")
	viper.SetDefault("HISTORY_DAYS", 90)
	viper.SetDefault("AI_TIMEOUT_SECONDS", 120)
	viper.SetDefault("AI_MAX_TOKENS", 8000)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate narration settings only when enabled
	if c.EnableNarration {
		if err := c.validateLLMProvider(); err != nil {
			return err
		}
		if c.AITimeoutSeconds < 30 || c.AITimeoutSeconds > 600 {
			return fmt.Errorf("AI_TIMEOUT_SECONDS must be between 30 and 600")
		}
		if c.AIMaxTokens < 1000 || c.AIMaxTokens > 16000 {
			return fmt.Errorf("AI_MAX_TOKENS must be between 1000 and 16000")
		}
	}

	// Validate Telegram settings only when enabled
	if c.EnableTelegram {
		if c.TelegramBotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when ENABLE_TELEGRAM=true")
		}
		telegramTokenRegex := regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
		if !telegramTokenRegex.MatchString(c.TelegramBotToken) {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN has invalid format (expected: 'number:token')")
		}

		if c.TelegramArchiveChannel == 0 {
			return fmt.Errorf("TELEGRAM_CHANNEL_ARCHIVE_ID is required when ENABLE_TELEGRAM=true")
		}
		if c.TelegramArchiveChannel > -100 {
			return fmt.Errorf("TELEGRAM_CHANNEL_ARCHIVE_ID must be a supergroup/channel ID (starts with -100)")
		}

		// Alerts channel is optional, but if set must be valid
		if c.TelegramAlertsChannel != 0 && c.TelegramAlertsChannel > -100 {
			return fmt.Errorf("TELEGRAM_CHANNEL_ALERTS_ID must be a supergroup/channel ID (starts with -100)")
		}
	}

	// Validate max datalog size
	if c.MaxLogSizeMB < 1 || c.MaxLogSizeMB > 100 {
		return fmt.Errorf("MAX_LOG_SIZE_MB must be between 1 and 100")
	}

	// Validate analysis thresholds
	if c.WOTTPSThresholdPct < 50 || c.WOTTPSThresholdPct > 100 {
		return fmt.Errorf("WOT_TPS_THRESHOLD_PCT must be between 50 and 100")
	}
	if c.WOTMinSamples < 1 {
		return fmt.Errorf("WOT_MIN_SAMPLES must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if c.HistoryDays < 1 {
		return fmt.Errorf("HISTORY_DAYS must be at least 1")
	}

	return nil
}

// HasAlertsChannel returns true if alerts channel is configured
func (c *Config) HasAlertsChannel() bool {
	return c.TelegramAlertsChannel != 0
}

// GetProxyURL returns the appropriate proxy URL for HTTP/HTTPS requests
func (c *Config) GetProxyURL(isHTTPS bool) string {
	if isHTTPS && c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	if c.HTTPProxy != "" {
		return c.HTTPProxy
	}
	return ""
}

// constantTimePrefixMatch checks if s starts with prefix using constant-time comparison.
// This prevents timing attacks that could leak information about the string content.
// Returns false if s is shorter than prefix.
func constantTimePrefixMatch(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	// Compare only the prefix portion using constant-time comparison
	return subtle.ConstantTimeCompare([]byte(s[:len(prefix)]), []byte(prefix)) == 1
}

// validateLLMProvider validates LLM provider configuration
func (c *Config) validateLLMProvider() error {
	validProviders := map[string]bool{
		"anthropic": true,
		"ollama":    true,
	}

	if !validProviders[c.LLMProvider] {
		return fmt.Errorf("LLM_PROVIDER must be 'anthropic' or 'ollama' (got: %s)", c.LLMProvider)
	}

	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
		// Constant-time comparison keeps key bytes out of timing side channels
		if !constantTimePrefixMatch(c.AnthropicAPIKey, "sk-ant-") {
			return fmt.Errorf("ANTHROPIC_API_KEY must start with 'sk-ant-'")
		}
		if c.ClaudeModel == "" {
			return fmt.Errorf("CLAUDE_MODEL is required when LLM_PROVIDER=anthropic")
		}

	case "ollama":
		if c.OllamaModel == "" {
			return fmt.Errorf("OLLAMA_MODEL is required when LLM_PROVIDER=ollama")
		}
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL is required when LLM_PROVIDER=ollama")
		}
		if !strings.HasPrefix(c.OllamaBaseURL, "http://") && !strings.HasPrefix(c.OllamaBaseURL, "https://") {
			return fmt.Errorf("OLLAMA_BASE_URL must start with 'http://' or 'https://'")
		}
	}

	return nil
}

// IsOllama returns true if the LLM provider is Ollama
func (c *Config) IsOllama() bool {
	return c.LLMProvider == "ollama"
}

// IsAnthropic returns true if the LLM provider is Anthropic
func (c *Config) IsAnthropic() bool {
	return c.LLMProvider == "anthropic"
}

// GetLLMModel returns the model name for the current LLM provider
func (c *Config) GetLLMModel() string {
	switch c.LLMProvider {
	case "ollama":
		return c.OllamaModel
	default:
		return c.ClaudeModel
	}
}
