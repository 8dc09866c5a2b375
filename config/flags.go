package config

import (
	"flag"
	"time"
)

type flagValues struct {
	configPath string

	network        string
	nodeURL        string
	poolAddress    string
	coinType       string
	decimals       int
	account        string
	stateDir       string
	walDir         string
	webAddr        string
	tlsDomains     string
	certCacheDir   string
	simulate       bool
	successRate    float64
	latency        time.Duration
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

func bindFlags(fs *flag.FlagSet) *flagValues {
	d := Default()
	f := &flagValues{}

	fs.StringVar(&f.configPath, "config", "", "path to yaml config")
	fs.StringVar(&f.network, "network", d.Network, "network: mainnet or testnet")
	fs.StringVar(&f.nodeURL, "node", "", "full node REST url, defaults to the public node of the network")
	fs.StringVar(&f.poolAddress, "pool", d.PoolAddress, "pool contract address")
	fs.StringVar(&f.coinType, "coin", d.CoinType, "coin type, example: 0x1::cedra_coin::CedraCoin")
	fs.IntVar(&f.decimals, "decimals", int(d.Decimals), "decimals of the coin")
	fs.StringVar(&f.account, "account", "", "wallet account address")
	fs.StringVar(&f.stateDir, "state-dir", d.StateDir, "directory of the persisted client state")
	fs.StringVar(&f.walDir, "wal-dir", d.WALDir, "directory of the transaction journal")
	fs.StringVar(&f.webAddr, "web-addr", d.WebAddr, "listen address of the web server")
	fs.StringVar(&f.tlsDomains, "tls-domains", "", "comma separated domains for automatic TLS")
	fs.StringVar(&f.certCacheDir, "cert-cache", d.CertCacheDir, "certificate cache directory")
	fs.BoolVar(&f.simulate, "simulate", d.Simulate, "use the in-process simulated chain")
	fs.Float64Var(&f.successRate, "success-rate", d.SuccessRate, "share of simulated transactions that succeed")
	fs.DurationVar(&f.latency, "latency", d.Latency, "simulated confirmation latency")
	fs.DurationVar(&f.confirmTimeout, "confirm-timeout", d.ConfirmTimeout, "how long to wait for a confirmation")
	fs.DurationVar(&f.pollInterval, "poll-interval", d.PollInterval, "delay between confirmation polls")

	return f
}

// apply copies the flags the user actually passed, so defaults never override file or env values.
func (f *flagValues) apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "network":
			cfg.Network = f.network
		case "node":
			cfg.NodeURL = f.nodeURL
		case "pool":
			cfg.PoolAddress = f.poolAddress
		case "coin":
			cfg.CoinType = f.coinType
		case "decimals":
			cfg.Decimals = int32(f.decimals)
		case "account":
			cfg.Account = f.account
		case "state-dir":
			cfg.StateDir = f.stateDir
		case "wal-dir":
			cfg.WALDir = f.walDir
		case "web-addr":
			cfg.WebAddr = f.webAddr
		case "tls-domains":
			cfg.TLSDomains = splitList(f.tlsDomains)
		case "cert-cache":
			cfg.CertCacheDir = f.certCacheDir
		case "simulate":
			cfg.Simulate = f.simulate
		case "success-rate":
			cfg.SuccessRate = f.successRate
		case "latency":
			cfg.Latency = f.latency
		case "confirm-timeout":
			cfg.ConfirmTimeout = f.confirmTimeout
		case "poll-interval":
			cfg.PollInterval = f.pollInterval
		}
	})
}
