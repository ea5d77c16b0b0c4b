package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/coreledger/ledgerd/internal/core/consensus"
	"github.com/coreledger/ledgerd/internal/core/txq"
)

// runConfig holds the timing, threshold, and queue parameters a standalone
// run is configured with. Loaded the same way the rest of the node's config
// would be: defaults, then an optional file, then XRPLD_-prefixed env vars.
type runConfig struct {
	Timing     consensus.Timing
	Thresholds consensus.Thresholds
	TxQ        txq.Config
}

func loadRunConfig(configFile string) (runConfig, error) {
	v := viper.New()

	defaultTiming := consensus.DefaultTiming()
	v.SetDefault("timing.ledger_min_close", defaultTiming.LedgerMinClose)
	v.SetDefault("timing.ledger_max_close", defaultTiming.LedgerMaxClose)
	v.SetDefault("timing.ledger_idle_interval", defaultTiming.LedgerIdleInterval)
	v.SetDefault("timing.ledger_granularity", defaultTiming.LedgerGranularity)
	v.SetDefault("timing.propose_freshness", defaultTiming.ProposeFreshness)
	v.SetDefault("timing.validation_freshness", defaultTiming.ValidationFreshness)

	defaultThresholds := consensus.DefaultThresholds()
	v.SetDefault("thresholds.min_consensus_pct", defaultThresholds.MinConsensusPct)
	v.SetDefault("thresholds.increase_consensus_pct", defaultThresholds.IncreaseConsensusPct)
	v.SetDefault("thresholds.max_consensus_pct", defaultThresholds.MaxConsensusPct)

	v.SetDefault("txq.standalone", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return runConfig{}, err
		}
	}

	v.SetEnvPrefix("XRPLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := runConfig{
		Timing: consensus.Timing{
			LedgerMinClose:      v.GetDuration("timing.ledger_min_close"),
			LedgerMaxClose:      v.GetDuration("timing.ledger_max_close"),
			LedgerIdleInterval:  v.GetDuration("timing.ledger_idle_interval"),
			LedgerGranularity:   v.GetDuration("timing.ledger_granularity"),
			ProposeFreshness:    v.GetDuration("timing.propose_freshness"),
			ValidationFreshness: v.GetDuration("timing.validation_freshness"),
		},
		Thresholds: consensus.Thresholds{
			MinConsensusPct:      v.GetInt("thresholds.min_consensus_pct"),
			IncreaseConsensusPct: v.GetInt("thresholds.increase_consensus_pct"),
			MaxConsensusPct:      v.GetInt("thresholds.max_consensus_pct"),
		},
		TxQ: txq.StandaloneConfig(),
	}
	cfg.TxQ.Standalone = v.GetBool("txq.standalone")

	return cfg, nil
}

// idleTick is the period of the run loop's ticker, which starts the next
// round once the previous one is accepted: LedgerIdleInterval, or
// LedgerMaxClose when no idle interval is configured.
func (c runConfig) idleTick() time.Duration {
	if c.Timing.LedgerIdleInterval > 0 {
		return c.Timing.LedgerIdleInterval
	}
	return c.Timing.LedgerMaxClose
}
