package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/aegis/internal/domain"
)

func writeYaml(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aegis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, rest, err := Load([]string{"history"})
	require.NoError(t, err)

	assert.Equal(t, []string{"history"}, rest)
	assert.Equal(t, domain.NetworkTestnet, cfg.Network)
	assert.Equal(t, TestnetNodeURL, cfg.NodeURL)
	assert.Equal(t, DefaultPoolAddress, cfg.PoolAddress)
	assert.Equal(t, DefaultCoinType, cfg.CoinType)
	assert.Equal(t, domain.CedraDecimals, cfg.Decimals)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, domain.ChainIDTestnet, cfg.ChainID())
}

func TestLoad_YamlThenFlags(t *testing.T) {
	path := writeYaml(t, `
network: mainnet
account: "0xfeed"
decimals: 6
simulate: false
success_rate: 0.5
confirm_timeout: 10s
poll_interval: 500ms
tls_domains: [aegis.example.com]
`)

	cfg, rest, err := Load([]string{"--config", path, "--decimals", "8", "supply", "CEDRA", "1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"supply", "CEDRA", "1"}, rest)
	assert.Equal(t, domain.NetworkMainnet, cfg.Network)
	assert.Equal(t, MainnetNodeURL, cfg.NodeURL)
	assert.Equal(t, "0xfeed", cfg.Account)
	assert.Equal(t, int32(8), cfg.Decimals, "explicit flag wins over the file")
	assert.False(t, cfg.Simulate)
	assert.Equal(t, 0.5, cfg.SuccessRate)
	assert.Equal(t, 10*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, []string{"aegis.example.com"}, cfg.TLSDomains)
	assert.Equal(t, domain.ChainIDMainnet, cfg.ChainID())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYaml(t, "network: mainnet\nwal_dir: /tmp/from-file\n")
	t.Setenv("AEGIS_NETWORK", "testnet")
	t.Setenv("AEGIS_TLS_DOMAINS", "a.example.com, b.example.com")
	t.Setenv("AEGIS_LATENCY", "250ms")

	cfg, _, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, domain.NetworkTestnet, cfg.Network)
	assert.Equal(t, "/tmp/from-file", cfg.WALDir)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.TLSDomains)
	assert.Equal(t, 250*time.Millisecond, cfg.Latency)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"missing file", []string{"--config", "/nonexistent/aegis.yaml"}, nil},
		{"unknown network", []string{"--network", "devnet"}, nil},
		{"bad pool", []string{"--pool", "not-hex"}, nil},
		{"bad account", []string{"--account", "0xzz"}, nil},
		{"bad coin", []string{"--coin", "CEDRA"}, nil},
		{"negative decimals", []string{"--decimals", "-1"}, nil},
		{"success rate", []string{"--success-rate", "1.5"}, nil},
		{"poll over timeout", []string{"--poll-interval", "1m", "--confirm-timeout", "1s"}, nil},
		{"bad env duration", nil, map[string]string{"AEGIS_POLL_INTERVAL": "soon"}},
		{"bad env bool", nil, map[string]string{"AEGIS_SIMULATE": "maybe"}},
		{"unknown flag", []string{"--nope"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Network = domain.NetworkMainnet
	cfg.NodeURL = "http://localhost:8080"
	cfg.Account = "0xbeef"
	cfg.Simulate = false
	cfg.Latency = 2 * time.Second

	path := filepath.Join(t.TempDir(), "aegis.yaml")
	require.NoError(t, Write(path, cfg))

	loaded, _, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestExplorerURL(t *testing.T) {
	tests := []struct {
		network  string
		kind     ExplorerKind
		value    string
		expected string
	}{
		{domain.NetworkMainnet, ExplorerTx, "0xabc", "https://cedrascan.com/txn/0xabc"},
		{domain.NetworkTestnet, ExplorerTx, "0xabc", "https://testnet.cedrascan.com/txn/0xabc"},
		{domain.NetworkTestnet, ExplorerAddress, "0x1", "https://testnet.cedrascan.com/account/0x1"},
		{domain.NetworkMainnet, ExplorerBlock, "42", "https://cedrascan.com/block/42"},
		{domain.NetworkMainnet, ExplorerKind("other"), "42", "https://cedrascan.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExplorerURL(tt.network, tt.kind, tt.value))
	}
}
