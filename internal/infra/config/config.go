package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pump-wallet-monitor/internal/clients_api/helius"
	"pump-wallet-monitor/internal/features/pumpfun"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Source modes for the monitor.
const (
	SourceAuto   = "auto"
	SourceStream = "stream"
	SourcePoll   = "poll"
)

// Config -
type Config struct {
	RPC      RPCConfig      `mapstructure:"rpc"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Relay    RelayConfig    `mapstructure:"relay"`
	App      AppConfig      `mapstructure:"app"`
}

type RPCConfig struct {
	URL            string  `mapstructure:"url"`
	WSURL          string  `mapstructure:"ws_url"`
	HeliusAPIKey   string  `mapstructure:"helius_api_key"`
	Commitment     string  `mapstructure:"commitment"`
	RequestTimeout int     `mapstructure:"request_timeout"` // seconds
	MaxRetries     int     `mapstructure:"max_retries"`
	RateLimit      float64 `mapstructure:"rate_limit"` // requests per second
}

type MonitorConfig struct {
	Wallet         string  `mapstructure:"wallet"`
	ProgramID      string  `mapstructure:"program_id"` // base58 or alias (pump, raydium-v4)
	Source         string  `mapstructure:"source"`
	PollInterval   int     `mapstructure:"poll_interval"` // seconds
	SignatureLimit int     `mapstructure:"signature_limit"`
	AlertThreshold float64 `mapstructure:"alert_threshold"` // percent
	MinHolding     float64 `mapstructure:"min_holding"`     // UI tokens
	TokenDecimals  int     `mapstructure:"token_decimals"`
	Dashboard      bool    `mapstructure:"dashboard"`
	RenderInterval int     `mapstructure:"render_interval"` // seconds
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	TopicID  int    `mapstructure:"topic_id"`
	Commands bool   `mapstructure:"commands"`
}

type RelayConfig struct {
	AlertURL string `mapstructure:"alert_url"`
}

type AppConfig struct {
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig from env, files and flags. Later sources win:
// 1. defaults
// 2. config.yaml
// 3. .env file
// 4. environment variables
// 5. flags (only those explicitly set)
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v, err := load(flags)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTelegramConfig is the relaxed variant used by tools that only talk to the bot.
func LoadTelegramConfig(flags *pflag.FlagSet) (*Config, error) {
	v, err := load(flags)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validateTelegram(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(flags *pflag.FlagSet) (*viper.Viper, error) {
	// godotenv never overrides variables already present in the environment
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setupEnvAliases(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return v, nil
}

func setupEnvAliases(v *viper.Viper) {
	// RPC
	v.BindEnv("rpc.url", "RPC_URL")
	v.BindEnv("rpc.ws_url", "RPC_WS_URL")
	v.BindEnv("rpc.helius_api_key", "HELIUS_API_KEY")
	v.BindEnv("rpc.commitment", "RPC_COMMITMENT")

	// Monitor
	v.BindEnv("monitor.wallet", "MONITOR_WALLET")
	v.BindEnv("monitor.program_id", "MONITOR_PROGRAM_ID")
	v.BindEnv("monitor.source", "MONITOR_SOURCE")
	v.BindEnv("monitor.alert_threshold", "MONITOR_ALERT_THRESHOLD")
	v.BindEnv("monitor.min_holding", "MONITOR_MIN_HOLDING")

	// Telegram
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
	v.BindEnv("telegram.topic_id", "TELEGRAM_TOPIC_ID")
	v.BindEnv("telegram.commands", "TELEGRAM_COMMANDS")

	// Relay
	v.BindEnv("relay.alert_url", "WS_ALERT_URL")

	// App
	v.BindEnv("app.log_file", "LOG_FILE")
	v.BindEnv("app.log_level", "LOG_LEVEL")
}

func setDefaults(v *viper.Viper) {
	// RPC
	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.ws_url", "")
	v.SetDefault("rpc.helius_api_key", "")
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.request_timeout", 30)
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("rpc.rate_limit", 10.0)

	// Monitor
	v.SetDefault("monitor.wallet", "")
	v.SetDefault("monitor.program_id", pumpfun.ProgramID.String())
	v.SetDefault("monitor.source", SourceAuto)
	v.SetDefault("monitor.poll_interval", 5)
	v.SetDefault("monitor.signature_limit", 25)
	v.SetDefault("monitor.alert_threshold", 5.0)
	v.SetDefault("monitor.min_holding", 10000.0)
	v.SetDefault("monitor.token_decimals", 6)
	v.SetDefault("monitor.dashboard", true)
	v.SetDefault("monitor.render_interval", 1)

	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.topic_id", 0)
	v.SetDefault("telegram.commands", false)

	// Relay
	v.SetDefault("relay.alert_url", "")

	// App
	v.SetDefault("app.log_file", "monitor.log")
	v.SetDefault("app.log_level", "info")
}

// RegisterFlags adds the overridable keys to a command's flag set.
// Flag names equal the viper keys so BindPFlags maps them directly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("rpc.url", "https://api.mainnet-beta.solana.com", "Solana RPC endpoint (env: RPC_URL)")
	fs.String("rpc.ws_url", "", "Websocket endpoint for logsSubscribe (env: RPC_WS_URL)")
	fs.String("rpc.commitment", "confirmed", "Commitment level (env: RPC_COMMITMENT)")
	fs.String("monitor.wallet", "", "Wallet to monitor (env: MONITOR_WALLET)")
	fs.String("monitor.program_id", pumpfun.ProgramID.String(), "Program ID or alias: pump, raydium-v4 (env: MONITOR_PROGRAM_ID)")
	fs.String("monitor.source", SourceAuto, "Event source: auto, stream or poll (env: MONITOR_SOURCE)")
	fs.Int("monitor.poll_interval", 5, "Poll interval in seconds")
	fs.Float64("monitor.alert_threshold", 5, "Price change in percent that triggers an alert (env: MONITOR_ALERT_THRESHOLD)")
	fs.Float64("monitor.min_holding", 10000, "Positions below this many tokens are dropped (env: MONITOR_MIN_HOLDING)")
	fs.Bool("monitor.dashboard", true, "Render the holdings table to the console")
	fs.String("app.log_file", "monitor.log", "Log file path (env: LOG_FILE)")
	fs.String("app.log_level", "info", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
}

// Validate checks required keys and value ranges.
func (c *Config) Validate() error {
	if c.Monitor.Wallet == "" {
		return fmt.Errorf("monitor.wallet is required (env: MONITOR_WALLET)")
	}
	if _, err := solana.PublicKeyFromBase58(c.Monitor.Wallet); err != nil {
		return fmt.Errorf("invalid monitor.wallet %q: %w", c.Monitor.Wallet, err)
	}
	if _, err := pumpfun.ResolveProgramID(c.Monitor.ProgramID); err != nil {
		return fmt.Errorf("invalid monitor.program_id: %w", err)
	}
	switch c.Monitor.Source {
	case SourceAuto, SourceStream, SourcePoll:
	default:
		return fmt.Errorf("invalid monitor.source %q: want auto, stream or poll", c.Monitor.Source)
	}
	if c.Monitor.AlertThreshold <= 0 {
		return fmt.Errorf("monitor.alert_threshold must be positive, got %v", c.Monitor.AlertThreshold)
	}
	if c.Monitor.MinHolding < 0 {
		return fmt.Errorf("monitor.min_holding must not be negative, got %v", c.Monitor.MinHolding)
	}
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required (env: RPC_URL)")
	}
	if c.Monitor.Source == SourceStream && c.StreamURL() == "" {
		return fmt.Errorf("stream source needs HELIUS_API_KEY or RPC_WS_URL")
	}
	return c.validateTelegram()
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (env: TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required (env: TELEGRAM_CHAT_ID)")
	}
	if _, err := c.ChatID(); err != nil {
		return err
	}
	return nil
}

// ChatID parses telegram.chat_id.
func (c *Config) ChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram.chat_id %q: %w", c.Telegram.ChatID, err)
	}
	return id, nil
}

// StreamURL is the websocket endpoint: an explicit RPC_WS_URL wins over the Helius key.
func (c *Config) StreamURL() string {
	if c.RPC.WSURL != "" {
		return c.RPC.WSURL
	}
	if c.RPC.HeliusAPIKey != "" {
		return helius.WSURL(c.RPC.HeliusAPIKey)
	}
	return ""
}

// ResolveSource turns auto into stream or poll depending on what is configured.
func (c *Config) ResolveSource() string {
	if c.Monitor.Source != SourceAuto && c.Monitor.Source != "" {
		return c.Monitor.Source
	}
	if c.StreamURL() != "" {
		return SourceStream
	}
	return SourcePoll
}

func (c *Config) PollInterval() time.Duration {
	if c.Monitor.PollInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Monitor.PollInterval) * time.Second
}

func (c *Config) RenderInterval() time.Duration {
	if c.Monitor.RenderInterval <= 0 {
		return time.Second
	}
	return time.Duration(c.Monitor.RenderInterval) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	if c.RPC.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RPC.RequestTimeout) * time.Second
}
