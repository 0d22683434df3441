// internal/config/config.go

// Package config loads the daemon configuration: a YAML file merged with
// LAUNCHPAD_-prefixed environment variables over built-in defaults. On-curve
// amounts are 18-decimal fixed-point integers written as decimal strings,
// since they do not fit in the integer types a config file offers.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	DatabasePath string `mapstructure:"database_path"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	EventBuffer  int    `mapstructure:"event_buffer"`

	Curve  CurveConfig  `mapstructure:"curve"`
	Launch LaunchConfig `mapstructure:"launch"`
}

// CurveConfig sets the pricing multiplier and the trade taxes.
type CurveConfig struct {
	Multiplier uint64 `mapstructure:"multiplier"`
	BuyTaxBps  uint16 `mapstructure:"buy_tax_bps"`
	SellTaxBps uint16 `mapstructure:"sell_tax_bps"`
}

// LaunchConfig sets the global launch parameters.
type LaunchConfig struct {
	InitialSupply       string `mapstructure:"initial_supply"`
	AssetLaunchFee      string `mapstructure:"asset_launch_fee"`
	NativeLaunchFee     string `mapstructure:"native_launch_fee"`
	MaxTxPercent        uint64 `mapstructure:"max_tx_percent"`
	NativeGradThreshold string `mapstructure:"native_grad_threshold"`
	AssetGradThreshold  string `mapstructure:"asset_grad_threshold"`
	DragonswapTaxBps    uint16 `mapstructure:"dragonswap_tax_bps"`
}

const (
	DefaultListenAddr   = ":8080"
	DefaultDatabasePath = "launchpad.db"
	DefaultEventBuffer  = 256
	DefaultMultiplier   = 5
	DefaultTaxBps       = 100
	DefaultMaxTxPercent = 5

	// 1e9 tokens, 10-unit fees, 1e5-unit graduation thresholds, all at 18
	// decimals.
	DefaultInitialSupply = "1000000000000000000000000000"
	DefaultLaunchFee     = "10000000000000000000"
	DefaultGradThreshold = "100000000000000000000000"
)

// LoadConfig reads the config file at path, if any, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"listen_addr":                  DefaultListenAddr,
		"database_path":                DefaultDatabasePath,
		"debug_logging":                false,
		"event_buffer":                 DefaultEventBuffer,
		"curve.multiplier":             DefaultMultiplier,
		"curve.buy_tax_bps":            DefaultTaxBps,
		"curve.sell_tax_bps":           DefaultTaxBps,
		"launch.initial_supply":        DefaultInitialSupply,
		"launch.asset_launch_fee":      DefaultLaunchFee,
		"launch.native_launch_fee":     DefaultLaunchFee,
		"launch.max_tx_percent":        DefaultMaxTxPercent,
		"launch.native_grad_threshold": DefaultGradThreshold,
		"launch.asset_grad_threshold":  DefaultGradThreshold,
		"launch.dragonswap_tax_bps":    DefaultTaxBps,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return errors.New("listen_addr is empty")
	}
	if cfg.DatabasePath == "" {
		return errors.New("database_path is empty")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.Curve.Multiplier == 0 {
		return errors.New("invalid curve multiplier")
	}
	if cfg.Curve.BuyTaxBps >= 10_000 || cfg.Curve.SellTaxBps >= 10_000 ||
		cfg.Launch.DragonswapTaxBps >= 10_000 {
		return errors.New("tax must be below 10000 bps")
	}
	if cfg.Launch.MaxTxPercent == 0 || cfg.Launch.MaxTxPercent > 100 {
		return errors.New("max_tx_percent out of (0,100]")
	}
	for field, value := range map[string]string{
		"initial_supply":        cfg.Launch.InitialSupply,
		"asset_launch_fee":      cfg.Launch.AssetLaunchFee,
		"native_launch_fee":     cfg.Launch.NativeLaunchFee,
		"native_grad_threshold": cfg.Launch.NativeGradThreshold,
		"asset_grad_threshold":  cfg.Launch.AssetGradThreshold,
	} {
		if _, err := Amount(value); err != nil {
			return fmt.Errorf("invalid launch.%s: %w", field, err)
		}
	}
	if supply, _ := Amount(cfg.Launch.InitialSupply); supply.IsZero() {
		return errors.New("initial_supply must be positive")
	}
	return nil
}

// Amount parses an 18-decimal fixed-point amount written as a decimal string.
func Amount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("empty amount")
	}
	return uint256.FromDecimal(s)
}
