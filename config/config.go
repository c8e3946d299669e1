package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"omenchain/core/types"
)

// MarketSeed defines the genesis prediction market.
type MarketSeed struct {
	Title        string `toml:"Title"`
	YesLiquidity string `toml:"YesLiquidity"`
	NoLiquidity  string `toml:"NoLiquidity"`
	StartTime    int64  `toml:"StartTime"`
	EndTime      int64  `toml:"EndTime"`
}

// Config is the node deployment configuration.
type Config struct {
	RPCAddress     string     `toml:"RPCAddress"`
	GatewayAddress string     `toml:"GatewayAddress"`
	MetricsAddress string     `toml:"MetricsAddress"`
	DataDir        string     `toml:"DataDir"`
	Environment    string     `toml:"Environment"`
	AdminAddress   string     `toml:"AdminAddress"`
	RPCToken       string     `toml:"RPCToken"`
	FeeRateBps     uint64     `toml:"FeeRateBps"`
	FeeDenominator uint64     `toml:"FeeDenominator"`
	EventBacklog   int        `toml:"EventBacklog"`
	PausedModules  []string   `toml:"PausedModules"`
	GatewayConfig  string     `toml:"GatewayConfig"`
	Market         MarketSeed `toml:"Market"`
}

func defaults() *Config {
	return &Config{
		RPCAddress:     ":8080",
		GatewayAddress: ":8081",
		MetricsAddress: ":9090",
		DataDir:        "./omen-data",
		FeeRateBps:     100,
		FeeDenominator: 10_000,
		EventBacklog:   1024,
	}
}

// Load reads a TOML node configuration, creating a default file when none
// exists at the path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := defaults()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaults()
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create config %s: %w", path, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields whose zero values cannot serve.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if c.FeeDenominator == 0 {
		return fmt.Errorf("config: FeeDenominator must be positive")
	}
	if c.FeeRateBps > c.FeeDenominator {
		return fmt.Errorf("config: FeeRateBps must not exceed FeeDenominator")
	}
	if c.AdminAddress != "" {
		if _, err := c.Admin(); err != nil {
			return err
		}
	}
	return nil
}

// Admin decodes the configured admin address.
func (c *Config) Admin() (types.Address, error) {
	var addr types.Address
	trimmed := strings.TrimPrefix(strings.TrimSpace(c.AdminAddress), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("config: invalid AdminAddress: %w", err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("config: AdminAddress must be %d bytes", len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// Paused reports the module pause set for the runtime guard.
func (c *Config) Paused() map[string]struct{} {
	paused := make(map[string]struct{}, len(c.PausedModules))
	for _, name := range c.PausedModules {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			paused[name] = struct{}{}
		}
	}
	return paused
}
