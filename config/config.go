package config

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/aegis/internal/domain"
)

const (
	DefaultPoolAddress = "0xd5065d0af1a1adec233de5f30dc78f28f26063e387d17ab50f91bdc52e58c8e9"
	DefaultCoinType    = "0x1::cedra_coin::CedraCoin"

	MainnetNodeURL = "https://mainnet.cedra.dev"
	TestnetNodeURL = "https://testnet.cedra.dev"

	envPrefix = "AEGIS_"
)

// Config holds everything the client needs to talk to the pool.
type Config struct {
	Network     string
	NodeURL     string
	PoolAddress string
	CoinType    string
	Decimals    int32
	// Account is the address the wallet adapter signs for.
	Account string

	StateDir string
	WALDir   string

	WebAddr      string
	TLSDomains   []string
	CertCacheDir string

	// Simulate routes submissions and views to the in-process mock chain.
	Simulate    bool
	SuccessRate float64
	Latency     time.Duration

	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// ConfigTmp is the YAML layout of the config file.
type ConfigTmp struct {
	Network        string        `yaml:"network"`
	NodeURL        string        `yaml:"node_url,omitempty"`
	PoolAddress    string        `yaml:"pool_address,omitempty"`
	CoinType       string        `yaml:"coin_type,omitempty"`
	Decimals       *int32        `yaml:"decimals,omitempty"`
	Account        string        `yaml:"account"`
	StateDir       string        `yaml:"state_dir,omitempty"`
	WALDir         string        `yaml:"wal_dir,omitempty"`
	WebAddr        string        `yaml:"web_addr,omitempty"`
	TLSDomains     []string      `yaml:"tls_domains,omitempty"`
	CertCacheDir   string        `yaml:"cert_cache_dir,omitempty"`
	Simulate       *bool         `yaml:"simulate,omitempty"`
	SuccessRate    *float64      `yaml:"success_rate,omitempty"`
	Latency        time.Duration `yaml:"latency,omitempty"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
}

// Default returns the testnet configuration with the simulated chain enabled.
func Default() Config {
	return Config{
		Network:        domain.NetworkTestnet,
		PoolAddress:    DefaultPoolAddress,
		CoinType:       DefaultCoinType,
		Decimals:       domain.CedraDecimals,
		StateDir:       "./wal/state",
		WALDir:         "./wal/transactions",
		WebAddr:        ":8080",
		CertCacheDir:   "cert-cache",
		Simulate:       true,
		SuccessRate:    0.9,
		Latency:        time.Second,
		ConfirmTimeout: 30 * time.Second,
		PollInterval:   time.Second,
	}
}

// Get loads the configuration from the process arguments and returns the remaining positional arguments.
func Get() (Config, []string, error) {
	return Load(os.Args[1:])
}

// Load resolves the configuration. Later sources win: defaults, the --config YAML file,
// AEGIS_* environment variables (a .env file is loaded first when present), explicit flags.
func Load(args []string) (Config, []string, error) {
	set := flag.NewFlagSet("aegis", flag.ContinueOnError)
	f := bindFlags(set)
	if err := set.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg := Default()

	if f.configPath != "" {
		fileCfg, err := getYaml(f.configPath)
		if err != nil {
			return Config{}, nil, err
		}
		cfg = merge(cfg, fileCfg)
	}

	if err := loadDotEnv(); err != nil {
		return Config{}, nil, err
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, nil, err
	}

	f.apply(set, &cfg)

	if cfg.NodeURL == "" {
		cfg.NodeURL = NodeURLFor(cfg.Network)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}

	return cfg, set.Args(), nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.Network != domain.NetworkMainnet && c.Network != domain.NetworkTestnet {
		return fmt.Errorf("unknown network %q, expected %s or %s", c.Network, domain.NetworkMainnet, domain.NetworkTestnet)
	}
	if _, err := domain.PadAddress(c.PoolAddress); err != nil {
		return errors.Wrapf(err, "incorrect 'pool_address' %q", c.PoolAddress)
	}
	if c.Account != "" {
		if _, err := domain.PadAddress(c.Account); err != nil {
			return errors.Wrapf(err, "incorrect 'account' %q", c.Account)
		}
	}
	if strings.Count(c.CoinType, "::") != 2 {
		return fmt.Errorf("incorrect 'coin_type' %q, expected <address>::<module>::<name>", c.CoinType)
	}
	if c.Decimals < 0 || c.Decimals > 32 {
		return fmt.Errorf("incorrect 'decimals' %d", c.Decimals)
	}
	if c.SuccessRate < 0 || c.SuccessRate > 1 {
		return fmt.Errorf("incorrect 'success_rate' %v, expected a value in [0, 1]", c.SuccessRate)
	}
	if c.ConfirmTimeout <= 0 || c.PollInterval <= 0 {
		return errors.New("confirm timeout and poll interval must be positive")
	}
	if c.PollInterval > c.ConfirmTimeout {
		return fmt.Errorf("poll interval %s exceeds confirm timeout %s", c.PollInterval, c.ConfirmTimeout)
	}
	if !c.Simulate && c.NodeURL == "" {
		return errors.New("node url is required when simulation is off")
	}

	return nil
}

// ChainID returns the wallet chain id of the configured network.
func (c Config) ChainID() string {
	return domain.ChainIDFor(c.Network)
}

// NodeURLFor returns the public full node of network.
func NodeURLFor(network string) string {
	if network == domain.NetworkMainnet {
		return MainnetNodeURL
	}
	return TestnetNodeURL
}

// Write stores cfg as a YAML config file readable by --config.
func Write(path string, cfg Config) error {
	tmp := ConfigTmp{
		Network:        cfg.Network,
		NodeURL:        cfg.NodeURL,
		PoolAddress:    cfg.PoolAddress,
		CoinType:       cfg.CoinType,
		Decimals:       &cfg.Decimals,
		Account:        cfg.Account,
		StateDir:       cfg.StateDir,
		WALDir:         cfg.WALDir,
		WebAddr:        cfg.WebAddr,
		TLSDomains:     cfg.TLSDomains,
		CertCacheDir:   cfg.CertCacheDir,
		Simulate:       &cfg.Simulate,
		SuccessRate:    &cfg.SuccessRate,
		Latency:        cfg.Latency,
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.PollInterval,
	}

	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}

	return nil
}

func getYaml(path string) (ConfigTmp, error) {
	var tmp ConfigTmp

	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigTmp{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return ConfigTmp{}, errors.Wrapf(err, "parse config %s", path)
	}

	return tmp, nil
}

func merge(cfg Config, c ConfigTmp) Config {
	setString(&cfg.Network, c.Network)
	setString(&cfg.NodeURL, c.NodeURL)
	setString(&cfg.PoolAddress, c.PoolAddress)
	setString(&cfg.CoinType, c.CoinType)
	setString(&cfg.Account, c.Account)
	setString(&cfg.StateDir, c.StateDir)
	setString(&cfg.WALDir, c.WALDir)
	setString(&cfg.WebAddr, c.WebAddr)
	setString(&cfg.CertCacheDir, c.CertCacheDir)

	if c.Decimals != nil {
		cfg.Decimals = *c.Decimals
	}
	if len(c.TLSDomains) > 0 {
		cfg.TLSDomains = append([]string(nil), c.TLSDomains...)
	}
	if c.Simulate != nil {
		cfg.Simulate = *c.Simulate
	}
	if c.SuccessRate != nil {
		cfg.SuccessRate = *c.SuccessRate
	}
	if c.Latency > 0 {
		cfg.Latency = c.Latency
	}
	if c.ConfirmTimeout > 0 {
		cfg.ConfirmTimeout = c.ConfirmTimeout
	}
	if c.PollInterval > 0 {
		cfg.PollInterval = c.PollInterval
	}

	return cfg
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "load .env")
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	for name, dst := range map[string]*string{
		"NETWORK":        &cfg.Network,
		"NODE_URL":       &cfg.NodeURL,
		"POOL_ADDRESS":   &cfg.PoolAddress,
		"COIN_TYPE":      &cfg.CoinType,
		"ACCOUNT":        &cfg.Account,
		"STATE_DIR":      &cfg.StateDir,
		"WAL_DIR":        &cfg.WALDir,
		"WEB_ADDR":       &cfg.WebAddr,
		"CERT_CACHE_DIR": &cfg.CertCacheDir,
	} {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	if v, ok := get("TLS_DOMAINS"); ok {
		cfg.TLSDomains = splitList(v)
	}
	if v, ok := get("DECIMALS"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "incorrect %sDECIMALS", envPrefix)
		}
		cfg.Decimals = int32(n)
	}
	if v, ok := get("SIMULATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "incorrect %sSIMULATE", envPrefix)
		}
		cfg.Simulate = b
	}
	if v, ok := get("SUCCESS_RATE"); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "incorrect %sSUCCESS_RATE", envPrefix)
		}
		cfg.SuccessRate = rate
	}

	for name, dst := range map[string]*time.Duration{
		"LATENCY":         &cfg.Latency,
		"CONFIRM_TIMEOUT": &cfg.ConfirmTimeout,
		"POLL_INTERVAL":   &cfg.PollInterval,
	} {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "incorrect %s%s", envPrefix, name)
			}
			*dst = d
		}
	}

	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
