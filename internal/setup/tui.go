package setup

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/aegis/config"
	"github.com/vadiminshakov/aegis/internal/domain"
)

// DefaultConfigPath is where the wizard writes the generated config.
const DefaultConfigPath = "aegis.gen.yaml"

const (
	modeSimulate = "simulate"
	modeNode     = "node"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collects the raw wizard input before it becomes a config.Config.
type answers struct {
	network        string
	account        string
	mode           string
	nodeURL        string
	poolAddress    string
	coinType       string
	decimals       string
	successRate    string
	confirmTimeout string
	webAddr        string
}

func defaultAnswers() answers {
	d := config.Default()
	return answers{
		network:        d.Network,
		mode:           modeSimulate,
		poolAddress:    d.PoolAddress,
		coinType:       d.CoinType,
		decimals:       strconv.Itoa(int(d.Decimals)),
		successRate:    strconv.FormatFloat(d.SuccessRate, 'f', -1, 64),
		confirmTimeout: d.ConfirmTimeout.String(),
		webAddr:        d.WebAddr,
	}
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) (config.Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	a := defaultAnswers()
	var confirm bool

	screen("")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Connect your account to the Aegis lending pool.\n"))

	fmt.Println(stepStyle.Render("STEP 1: NETWORK"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the Cedra network").
				Options(
					huh.NewOption("Testnet", domain.NetworkTestnet),
					huh.NewOption("Mainnet", domain.NetworkMainnet),
				).
				Value(&a.network),
		),
	).Run()
	if err != nil {
		return config.Config{}, err
	}

	screen("STEP 2: ACCOUNT")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Wallet account address").
				Description("Hex address, short forms like 0x1 are padded").
				Value(&a.account).
				Validate(validateAddress),
		),
	).Run()
	if err != nil {
		return config.Config{}, err
	}

	screen("STEP 3: CHAIN ACCESS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should transactions go?").
				Options(
					huh.NewOption("Simulation (mock chain)", modeSimulate),
					huh.NewOption("Full node (read-only)", modeNode),
				).
				Value(&a.mode),
		),
	).Run()
	if err != nil {
		return config.Config{}, err
	}

	screen("STEP 4: POOL")
	fields := []huh.Field{
		huh.NewInput().
			Title("Pool address").
			Value(&a.poolAddress).
			Validate(validateAddress),
		huh.NewInput().
			Title("Coin type").
			Description("<address>::<module>::<name>").
			Value(&a.coinType).
			Validate(validateCoinType),
		huh.NewInput().
			Title("Coin decimals").
			Value(&a.decimals).
			Validate(validateDecimals),
		huh.NewInput().
			Title("Confirmation timeout").
			Description("Duration string (e.g. 30s, 1m)").
			Value(&a.confirmTimeout).
			Validate(validateDuration),
	}
	if a.mode == modeNode {
		a.nodeURL = config.NodeURLFor(a.network)
		fields = append(fields, huh.NewInput().
			Title("Full node URL").
			Value(&a.nodeURL).
			Validate(validateURL))
	} else {
		fields = append(fields, huh.NewInput().
			Title("Simulated success rate").
			Description("Between 0 and 1 (e.g. 0.9)").
			Value(&a.successRate).
			Validate(validateSuccessRate))
	}
	fields = append(fields, huh.NewInput().
		Title("Web server address").
		Value(&a.webAddr))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return config.Config{}, err
	}

	cfg, err := a.config()
	if err != nil {
		return config.Config{}, err
	}

	screen("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary(cfg)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return config.Config{}, err
	}
	if !confirm {
		return config.Config{}, errors.New("setup cancelled by user")
	}

	if err := config.Write(path, cfg); err != nil {
		return config.Config{}, err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nRun: aegis --config %s connect", path, path)))

	return cfg, nil
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("AEGIS CONFIG WIZARD"))
	if step != "" {
		fmt.Println(stepStyle.Render(step))
	}
}

// config turns validated answers into a config that passes config.Validate.
func (a answers) config() (config.Config, error) {
	cfg := config.Default()
	cfg.Network = a.network
	cfg.Account = strings.TrimSpace(a.account)
	cfg.PoolAddress = strings.TrimSpace(a.poolAddress)
	cfg.CoinType = strings.TrimSpace(a.coinType)
	cfg.WebAddr = strings.TrimSpace(a.webAddr)
	cfg.Simulate = a.mode != modeNode
	cfg.NodeURL = strings.TrimSpace(a.nodeURL)
	if cfg.NodeURL == "" {
		cfg.NodeURL = config.NodeURLFor(cfg.Network)
	}

	decimals, err := strconv.ParseInt(strings.TrimSpace(a.decimals), 10, 32)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "decimals")
	}
	cfg.Decimals = int32(decimals)

	timeout, err := time.ParseDuration(strings.TrimSpace(a.confirmTimeout))
	if err != nil {
		return config.Config{}, errors.Wrap(err, "confirmation timeout")
	}
	cfg.ConfirmTimeout = timeout

	if cfg.Simulate {
		rate, err := strconv.ParseFloat(strings.TrimSpace(a.successRate), 64)
		if err != nil {
			return config.Config{}, errors.Wrap(err, "success rate")
		}
		cfg.SuccessRate = rate
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func summary(cfg config.Config) string {
	chain := "simulated"
	if !cfg.Simulate {
		chain = cfg.NodeURL
	}

	return fmt.Sprintf(
		"Network: %s (chain id %s)\nAccount: %s\nChain: %s\nPool: %s\nCoin: %s (%d decimals)\nWeb: %s\n",
		cfg.Network, cfg.ChainID(), cfg.Account, chain, cfg.PoolAddress, cfg.CoinType, cfg.Decimals, cfg.WebAddr,
	)
}

func validateAddress(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("address cannot be empty")
	}
	if _, err := domain.PadAddress(s); err != nil {
		return errors.New("must be a hex address (e.g. 0x1)")
	}
	return nil
}

func validateCoinType(s string) error {
	if strings.Count(strings.TrimSpace(s), "::") != 2 {
		return errors.New("invalid format: must be <address>::<module>::<name>")
	}
	return nil
}

func validateDecimals(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a whole number")
	}
	if n < 0 || n > 32 {
		return errors.New("must be between 0 and 32")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a duration (e.g. 30s)")
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func validateSuccessRate(s string) error {
	rate, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("must be a valid number")
	}
	if rate < 0 || rate > 1 {
		return errors.New("must be between 0 and 1")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) url")
	}
	return nil
}
