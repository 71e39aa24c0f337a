package config

import (
	"os"
	"path/filepath"
	"testing"

	"pump-wallet-monitor/internal/features/pumpfun"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		"RPC_URL", "RPC_WS_URL", "HELIUS_API_KEY", "RPC_COMMITMENT",
		"MONITOR_WALLET", "MONITOR_PROGRAM_ID", "MONITOR_SOURCE", "MONITOR_ALERT_THRESHOLD", "MONITOR_MIN_HOLDING",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_TOPIC_ID", "TELEGRAM_COMMANDS",
		"WS_ALERT_URL", "LOG_FILE", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONITOR_WALLET", testWallet)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)
	setRequired(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPC.URL)
	assert.Equal(t, "confirmed", cfg.RPC.Commitment)
	assert.Equal(t, pumpfun.ProgramID.String(), cfg.Monitor.ProgramID)
	assert.Equal(t, 5.0, cfg.Monitor.AlertThreshold)
	assert.Equal(t, 10000.0, cfg.Monitor.MinHolding)
	assert.Equal(t, 6, cfg.Monitor.TokenDecimals)
	assert.True(t, cfg.Monitor.Dashboard)
	assert.Equal(t, "monitor.log", cfg.App.LogFile)
	assert.Equal(t, SourcePoll, cfg.ResolveSource())

	chatID, err := cfg.ChatID()
	require.NoError(t, err)
	assert.Equal(t, int64(-100200300), chatID)
}

func TestLoadConfigEnvAliases(t *testing.T) {
	isolate(t)
	setRequired(t)
	t.Setenv("HELIUS_API_KEY", "key-1")
	t.Setenv("MONITOR_ALERT_THRESHOLD", "12.5")
	t.Setenv("MONITOR_PROGRAM_ID", "raydium-v4")
	t.Setenv("WS_ALERT_URL", "ws://127.0.0.1:9898")
	t.Setenv("TELEGRAM_TOPIC_ID", "42")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.Monitor.AlertThreshold)
	assert.Equal(t, "raydium-v4", cfg.Monitor.ProgramID)
	assert.Equal(t, "ws://127.0.0.1:9898", cfg.Relay.AlertURL)
	assert.Equal(t, 42, cfg.Telegram.TopicID)
	assert.Equal(t, "wss://mainnet.helius-rpc.com/?api-key=key-1", cfg.StreamURL())
	assert.Equal(t, SourceStream, cfg.ResolveSource())
}

func TestLoadConfigYAMLThenFlags(t *testing.T) {
	dir := isolate(t)
	setRequired(t)
	yaml := "monitor:\n  poll_interval: 9\n  alert_threshold: 20\nrpc:\n  url: https://rpc.example\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--monitor.alert_threshold=7"}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Monitor.PollInterval)
	assert.Equal(t, "https://rpc.example", cfg.RPC.URL)
	assert.Equal(t, 7.0, cfg.Monitor.AlertThreshold)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing wallet", map[string]string{"MONITOR_WALLET": ""}, "monitor.wallet is required"},
		{"bad wallet", map[string]string{"MONITOR_WALLET": "not-a-key"}, "invalid monitor.wallet"},
		{"bad program", map[string]string{"MONITOR_PROGRAM_ID": "serum"}, "invalid monitor.program_id"},
		{"bad source", map[string]string{"MONITOR_SOURCE": "grpc"}, "invalid monitor.source"},
		{"zero threshold", map[string]string{"MONITOR_ALERT_THRESHOLD": "0"}, "alert_threshold must be positive"},
		{"missing token", map[string]string{"TELEGRAM_BOT_TOKEN": ""}, "telegram.bot_token is required"},
		{"bad chat", map[string]string{"TELEGRAM_CHAT_ID": "general"}, "invalid telegram.chat_id"},
		{"stream without url", map[string]string{"MONITOR_SOURCE": "stream"}, "stream source needs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveSourceExplicit(t *testing.T) {
	cfg := &Config{Monitor: MonitorConfig{Source: SourcePoll}, RPC: RPCConfig{HeliusAPIKey: "k"}}
	assert.Equal(t, SourcePoll, cfg.ResolveSource())

	cfg = &Config{Monitor: MonitorConfig{Source: SourceAuto}, RPC: RPCConfig{WSURL: "ws://node"}}
	assert.Equal(t, SourceStream, cfg.ResolveSource())
	assert.Equal(t, "ws://node", cfg.StreamURL())
}

func TestLoadTelegramConfigSkipsMonitorKeys(t *testing.T) {
	isolate(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "77")

	cfg, err := LoadTelegramConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Monitor.Wallet)
}
