package setup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/aegis/config"
	"github.com/vadiminshakov/aegis/internal/domain"
)

func TestAnswers_Config(t *testing.T) {
	a := defaultAnswers()
	a.account = " 0xfeed "
	a.successRate = "0.75"
	a.confirmTimeout = "45s"

	cfg, err := a.config()
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", cfg.Account)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 0.75, cfg.SuccessRate)
	assert.Equal(t, 45*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, config.TestnetNodeURL, cfg.NodeURL)
}

func TestAnswers_ConfigNodeMode(t *testing.T) {
	a := defaultAnswers()
	a.network = domain.NetworkMainnet
	a.account = "0x1"
	a.mode = modeNode
	a.successRate = "not used"

	cfg, err := a.config()
	require.NoError(t, err)
	assert.False(t, cfg.Simulate)
	assert.Equal(t, config.MainnetNodeURL, cfg.NodeURL)
	assert.Equal(t, domain.ChainIDMainnet, cfg.ChainID())
}

func TestAnswers_ConfigErrors(t *testing.T) {
	tests := map[string]func(*answers){
		"decimals":     func(a *answers) { a.decimals = "eight" },
		"timeout":      func(a *answers) { a.confirmTimeout = "later" },
		"success rate": func(a *answers) { a.successRate = "2" },
		"coin type":    func(a *answers) { a.coinType = "CEDRA" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			a := defaultAnswers()
			a.account = "0x1"
			mutate(&a)
			_, err := a.config()
			assert.Error(t, err)
		})
	}
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateAddress("0x1"))
	assert.Error(t, validateAddress(""))
	assert.Error(t, validateAddress("0xnothex"))

	assert.NoError(t, validateCoinType("0x1::cedra_coin::CedraCoin"))
	assert.Error(t, validateCoinType("0x1::cedra_coin"))

	assert.NoError(t, validateDecimals("8"))
	assert.Error(t, validateDecimals("-1"))
	assert.Error(t, validateDecimals("x"))

	assert.NoError(t, validateDuration("30s"))
	assert.Error(t, validateDuration("0s"))
	assert.Error(t, validateDuration("soon"))

	assert.NoError(t, validateSuccessRate("0.9"))
	assert.Error(t, validateSuccessRate("1.1"))

	assert.NoError(t, validateURL("https://testnet.cedra.dev"))
	assert.Error(t, validateURL("testnet.cedra.dev"))
}

func TestSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Account = "0xfeed"
	assert.Contains(t, summary(cfg), "Chain: simulated")
	assert.Contains(t, summary(cfg), "chain id 4")

	cfg.Simulate = false
	cfg.NodeURL = "https://node.example.com"
	assert.Contains(t, summary(cfg), "Chain: https://node.example.com")
}
