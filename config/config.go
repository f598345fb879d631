package config

import (
	"time"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EngineConfig is the full runtime configuration of the execution engine.
type EngineConfig struct {
	Chains             []types.ChainConfig `mapstructure:"chains"`
	AggregatorURL      string              `mapstructure:"aggregator_url"`
	DatabaseConnStr    string              `mapstructure:"database_conn_str"`
	GasPollInterval    time.Duration       `mapstructure:"gas_poll_interval"`
	StatusCooldown     time.Duration       `mapstructure:"status_cooldown"`
	QuoteDebounce      time.Duration       `mapstructure:"quote_debounce"`
	DefaultSlippagePct float64             `mapstructure:"default_slippage_pct"`
}

// Load reads the engine configuration from the given file. Environment
// variables prefixed with ENGINE_ override file values.
//
// Parameters:
// - path: the configuration file path.
//
// Returns:
// - *EngineConfig: the loaded configuration.
// - error: an error if the file cannot be read or decoded.
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ENGINE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gas_poll_interval", 15*time.Second)
	v.SetDefault("status_cooldown", 10*time.Second)
	v.SetDefault("quote_debounce", 500*time.Millisecond)
	v.SetDefault("default_slippage_pct", 1.0)
}

func (c *EngineConfig) validate() error {
	if len(c.Chains) == 0 {
		return errors.New("config must declare at least one chain")
	}
	for _, chain := range c.Chains {
		if chain.ChainID == 0 {
			return errors.Errorf("chain %s has no chain id", chain.Name)
		}
		if chain.RpcUrl == "" {
			return errors.Errorf("chain %s has no rpc url", chain.Name)
		}
	}
	if c.AggregatorURL == "" {
		return errors.New("config must declare the aggregator url")
	}
	return nil
}

// Chain returns the configuration of the given chain.
//
// Parameters:
// - chainID: the chain identifier to look up.
//
// Returns:
// - *types.ChainConfig: the chain configuration, nil when not configured.
func (c *EngineConfig) Chain(chainID uint64) *types.ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}
