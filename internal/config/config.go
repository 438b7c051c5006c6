// =============================
// File: internal/config/config.go
// =============================
package config

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-mev/internal/mev"
)

// PoolAccounts описывает один отслеживаемый пул в конфиге.
// Source/Destination опциональны: без них движок наблюдает и логирует,
// но не строит транзакции через этот пул.
type PoolAccounts struct {
	Address      string `mapstructure:"address"`
	PoolAAccount string `mapstructure:"pool_a_account"`
	PoolBAccount string `mapstructure:"pool_b_account"`
	Source       string `mapstructure:"source"`
	Destination  string `mapstructure:"destination"`
	PoolMint     string `mapstructure:"pool_mint"`
	PoolFee      string `mapstructure:"pool_fee"`
}

// PathStep is one hop of a configured arbitrage path.
type PathStep struct {
	Pool      string `mapstructure:"pool"`
	Direction string `mapstructure:"direction"`
}

// Path is a named arbitrage cycle over configured pools.
type Path struct {
	Name string     `mapstructure:"name"`
	Path []PathStep `mapstructure:"path"`
}

// MinimumProfit gates opportunity logging per input token mint.
type MinimumProfit struct {
	Mint     string `mapstructure:"mint"`
	Lamports uint64 `mapstructure:"lamports"`
}

// Config — полная конфигурация движка и демона-сканера.
type Config struct {
	LogPath           string          `mapstructure:"log_path"`
	OrcaProgram       string          `mapstructure:"orca_program"`
	WatchedPrograms   []string        `mapstructure:"watched_programs"`
	OrcaAccounts      []PoolAccounts  `mapstructure:"orca_accounts"`
	MevPaths          []Path          `mapstructure:"mev_paths"`
	UserAuthorityPath string          `mapstructure:"user_authority_path"`
	MinimumProfit     []MinimumProfit `mapstructure:"minimum_profit"`

	RPCList        []string `mapstructure:"rpc_list"`
	MetricsAddr    string   `mapstructure:"metrics_addr"`
	ScanIntervalMs int      `mapstructure:"scan_interval_ms"`
}

// Load читает и парсит конфиг из файла. Ошибка чтения или парсинга
// фатальна: движок никогда не стартует с частичной конфигурацией.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SOLANA_MEV")
	v.AutomaticEnv()

	v.SetDefault("metrics_addr", ":9465")
	v.SetDefault("scan_interval_ms", 400)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.LogPath == "" {
		return nil, fmt.Errorf("config %s: log_path is required", path)
	}
	if cfg.ScanIntervalMs <= 0 {
		return nil, fmt.Errorf("config %s: scan_interval_ms must be positive", path)
	}

	return &cfg, nil
}

// ScanInterval возвращает интервал опроса как time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}

// EngineConfig converts the raw string config into the engine's typed
// form: all public keys parsed, pool authorities derived, every path
// validated. Any malformed entry fails the whole conversion.
func (c *Config) EngineConfig() (*mev.EngineConfig, error) {
	orcaProgram := mev.OrcaProgramID
	if c.OrcaProgram != "" {
		key, err := solana.PublicKeyFromBase58(c.OrcaProgram)
		if err != nil {
			return nil, fmt.Errorf("invalid orca_program %q: %w", c.OrcaProgram, err)
		}
		orcaProgram = key
	}

	programs := make([]solana.PublicKey, 0, len(c.WatchedPrograms))
	for _, raw := range c.WatchedPrograms {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid watched program %q: %w", raw, err)
		}
		programs = append(programs, key)
	}

	pools := make([]mev.PoolAddresses, 0, len(c.OrcaAccounts))
	byAddress := make(map[solana.PublicKey]struct{}, len(c.OrcaAccounts))
	for _, raw := range c.OrcaAccounts {
		pool, err := parsePool(raw, orcaProgram)
		if err != nil {
			return nil, err
		}
		if _, dup := byAddress[pool.Address]; dup {
			return nil, fmt.Errorf("duplicate pool %s in orca_accounts", pool.Address)
		}
		byAddress[pool.Address] = struct{}{}
		pools = append(pools, *pool)
	}

	paths := make([]mev.MevPath, 0, len(c.MevPaths))
	for _, raw := range c.MevPaths {
		path, err := parsePath(raw, byAddress)
		if err != nil {
			return nil, err
		}
		paths = append(paths, *path)
	}

	minimum := make(map[solana.PublicKey]uint64, len(c.MinimumProfit))
	for _, raw := range c.MinimumProfit {
		mint, err := solana.PublicKeyFromBase58(raw.Mint)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum_profit mint %q: %w", raw.Mint, err)
		}
		minimum[mint] = raw.Lamports
	}

	return &mev.EngineConfig{
		Pools:           pools,
		Paths:           paths,
		WatchedPrograms: programs,
		MinimumProfit:   minimum,
	}, nil
}

func parsePool(raw PoolAccounts, programID solana.PublicKey) (*mev.PoolAddresses, error) {
	required := func(field, value string) (solana.PublicKey, error) {
		key, err := solana.PublicKeyFromBase58(value)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("pool %s: invalid %s %q: %w", raw.Address, field, value, err)
		}
		return key, nil
	}

	address, err := solana.PublicKeyFromBase58(raw.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid pool address %q: %w", raw.Address, err)
	}

	pool := mev.PoolAddresses{
		ProgramID: programID,
		Address:   address,
	}
	if pool.PoolAAccount, err = required("pool_a_account", raw.PoolAAccount); err != nil {
		return nil, err
	}
	if pool.PoolBAccount, err = required("pool_b_account", raw.PoolBAccount); err != nil {
		return nil, err
	}
	if pool.PoolMint, err = required("pool_mint", raw.PoolMint); err != nil {
		return nil, err
	}
	if pool.PoolFee, err = required("pool_fee", raw.PoolFee); err != nil {
		return nil, err
	}

	if raw.Source != "" {
		key, err := required("source", raw.Source)
		if err != nil {
			return nil, err
		}
		pool.Source = &key
	}
	if raw.Destination != "" {
		key, err := required("destination", raw.Destination)
		if err != nil {
			return nil, err
		}
		pool.Destination = &key
	}

	if err := pool.DeriveAuthority(); err != nil {
		return nil, fmt.Errorf("pool %s: %w", pool.Address, err)
	}
	return &pool, nil
}

func parsePath(raw Path, pools map[solana.PublicKey]struct{}) (*mev.MevPath, error) {
	steps := make([]mev.PairInfo, 0, len(raw.Path))
	for _, step := range raw.Path {
		pool, err := solana.PublicKeyFromBase58(step.Pool)
		if err != nil {
			return nil, fmt.Errorf("path %q: invalid pool %q: %w", raw.Name, step.Pool, err)
		}
		if _, ok := pools[pool]; !ok {
			return nil, fmt.Errorf("path %q: pool %s is not listed in orca_accounts", raw.Name, pool)
		}
		direction, err := mev.ParseTradeDirection(step.Direction)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", raw.Name, err)
		}
		steps = append(steps, mev.PairInfo{Pool: pool, Direction: direction})
	}

	path := mev.MevPath{Name: raw.Name, Path: steps}
	if err := path.Validate(); err != nil {
		return nil, fmt.Errorf("path %q: %w", raw.Name, err)
	}
	return &path, nil
}
