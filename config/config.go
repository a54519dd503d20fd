package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/ourbitrage/routes"
	"github.com/michaelpento.lv/ourbitrage/types"
	"gopkg.in/yaml.v2"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// MainnetContract is the deployed Ourbitrage contract on network version 1
const MainnetContract = "0xb9Fd169F2885E5e71d9aDb8E6e8505596feC339d"

type Config struct {
	Environment  string           `yaml:"environment"`
	Network      NetworkConfig    `yaml:"network"`
	Owner        OwnerConfig      `yaml:"owner"`
	Arbitrage    ArbitrageConfig  `yaml:"arbitrage"`
	Timings      TimingsConfig    `yaml:"timings"`
	GasStation   GasStationConfig `yaml:"gas_station"`
	RPCRateLimit RateLimitConfig  `yaml:"rpc_rate_limit"`
	Metrics      MetricsConfig    `yaml:"metrics"`
	Logging      LoggingConfig    `yaml:"logging"`

	// Routes overrides the reference route catalog when non-empty
	Routes []types.Route `yaml:"routes"`

	// Only ever read from the environment
	PrivateKey string `yaml:"-"`
}

type NetworkConfig struct {
	RPCEndpoint       string            `yaml:"rpc_endpoint"`
	NetworkVersion    string            `yaml:"network_version"`
	ContractAddresses map[string]string `yaml:"contract_addresses"`
	ABIFile           string            `yaml:"abi_file"`
}

type OwnerConfig struct {
	Address string `yaml:"address"`
}

type ArbitrageConfig struct {
	// Smallest-unit gain a route must reach to be executed
	MinProfitPerArb BigInt `yaml:"min_profit_per_arb"`
	// Expected safeLow wait above which the average tier is used
	GasWaitTolerance int64 `yaml:"gas_wait_tolerance"`
	// Gas limit of estimation and arbitrage transactions
	GasLimitCap uint64 `yaml:"gas_limit_cap"`
	// Highest gas price (wei) an arbitrage transaction may bid
	GasPriceCap BigInt `yaml:"gas_price_cap"`
	// Wei per native unit (1e18)
	NativeUnitScale BigInt `yaml:"native_unit_scale"`
	// Wei per gas station tier unit (1e8)
	GasPriceUnitScale BigInt `yaml:"gas_price_unit_scale"`
}

type TimingsConfig struct {
	ExecIntervalMs     int `yaml:"exec_interval_ms"`
	ReceiptIntervalMs  int `yaml:"receipt_interval_ms"`
	ReceiptMaxAttempts int `yaml:"receipt_max_attempts"`
}

type GasStationConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Namespace  string `yaml:"namespace"`
}

type LoggingConfig struct {
	File      string `yaml:"file"`
	ErrorFile string `yaml:"error_file"`
}

// BigInt is a big.Int that reads YAML integers, decimal strings and
// integral scientific notation such as 1e18.
type BigInt struct {
	*big.Int
}

// NewBigInt wraps v
func NewBigInt(v int64) BigInt {
	return BigInt{big.NewInt(v)}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (b *BigInt) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := ParseBigInt(raw)
	if err != nil {
		return err
	}
	b.Int = v
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (b BigInt) MarshalYAML() (interface{}, error) {
	if b.Int == nil {
		return nil, nil
	}
	return b.Int.String(), nil
}

// ParseBigInt parses a base-10 integer, allowing integral scientific notation
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return v, nil
	}
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if !f.IsInt() {
		return nil, fmt.Errorf("invalid integer %q: has a fractional part", s)
	}
	v, _ := f.Int(nil)
	return v, nil
}

// DefaultConfig returns the reference settings
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvironmentDevelopment,
		Network: NetworkConfig{
			RPCEndpoint:    "http://localhost:8545",
			NetworkVersion: "1",
			ContractAddresses: map[string]string{
				"1":    MainnetContract,
				"42":   "",
				"5777": "",
			},
		},
		Arbitrage: ArbitrageConfig{
			MinProfitPerArb:   NewBigInt(50000),
			GasWaitTolerance:  10,
			GasLimitCap:       3000000,
			GasPriceCap:       NewBigInt(10000000000), // 10 gwei
			NativeUnitScale:   NewBigInt(1000000000000000000),
			GasPriceUnitScale: NewBigInt(100000000),
		},
		Timings: TimingsConfig{
			ExecIntervalMs:    5000,
			ReceiptIntervalMs: 3000,
		},
		GasStation: GasStationConfig{
			URL:       "https://ethgasstation.info/json/ethgasAPI.json",
			TimeoutMs: 5000,
		},
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 25,
			BurstSize:         25,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9464",
			Namespace:  "ourbitrage",
		},
		Logging: LoggingConfig{
			File:      "ourbitrage_logs.txt",
			ErrorFile: "ourbitrage_errors.txt",
		},
	}
}

// LoadConfig reads cfgFile over the defaults, applies environment overrides
// and validates the result. An empty cfgFile uses defaults and environment only.
func LoadConfig(cfgFile string) (*Config, error) {
	cfg, err := ReadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation
func ReadConfig(cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	if cfgFile != "" {
		data, err := os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv() {
	c.Environment = GetEnvWithDefault(EnvNodeEnv, c.Environment)
	c.Network.RPCEndpoint = GetEnvWithDefault(EnvProviderURL, c.Network.RPCEndpoint)
	c.Network.NetworkVersion = GetEnvWithDefault(EnvNetworkVersion, c.Network.NetworkVersion)
	c.Owner.Address = GetEnvWithDefault(EnvOwnerPublicKey, c.Owner.Address)
	c.PrivateKey = GetEnvWithDefault(EnvOwnerPrivateKey, c.PrivateKey)

	if addr := os.Getenv(EnvContractAddress); addr != "" {
		if c.Network.ContractAddresses == nil {
			c.Network.ContractAddresses = make(map[string]string)
		}
		c.Network.ContractAddresses[c.Network.NetworkVersion] = addr
	}
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.Environment != EnvironmentDevelopment && c.Environment != EnvironmentProduction {
		errors = append(errors, fmt.Sprintf("environment must be %q or %q", EnvironmentDevelopment, EnvironmentProduction))
	}

	// Network
	if c.Network.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified")
	}
	if c.Network.NetworkVersion == "" {
		errors = append(errors, "network_version must be specified")
	}
	if _, err := c.ContractAddress(); err != nil {
		errors = append(errors, err.Error())
	}

	// Owner
	if !common.IsHexAddress(c.Owner.Address) {
		errors = append(errors, "owner address must be a hex address")
	}

	// Arbitrage
	if c.Arbitrage.MinProfitPerArb.Int == nil || c.Arbitrage.MinProfitPerArb.Sign() < 0 {
		errors = append(errors, "min_profit_per_arb must not be negative")
	}
	if c.Arbitrage.GasLimitCap == 0 {
		errors = append(errors, "gas_limit_cap must be positive")
	}
	if !positive(c.Arbitrage.GasPriceCap) {
		errors = append(errors, "gas_price_cap must be positive")
	}
	if !positive(c.Arbitrage.NativeUnitScale) {
		errors = append(errors, "native_unit_scale must be positive")
	}
	if !positive(c.Arbitrage.GasPriceUnitScale) {
		errors = append(errors, "gas_price_unit_scale must be positive")
	}

	// Timings
	if c.Timings.ExecIntervalMs <= 0 {
		errors = append(errors, "exec_interval_ms must be positive")
	}
	if c.Timings.ReceiptIntervalMs <= 0 {
		errors = append(errors, "receipt_interval_ms must be positive")
	}
	if c.Timings.ReceiptMaxAttempts < 0 {
		errors = append(errors, "receipt_max_attempts must not be negative")
	}
	if c.GasStation.URL == "" {
		errors = append(errors, "gas_station url must be specified")
	}

	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errors = append(errors, "metrics listen_addr must be specified when metrics are enabled")
	}

	if _, err := c.Catalog(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}

	return nil
}

func positive(b BigInt) bool {
	return b.Int != nil && b.Sign() > 0
}

// IsDevelopment reports whether the process runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Environment != EnvironmentProduction
}

// ContractAddress resolves the Ourbitrage address for the configured network version
func (c *Config) ContractAddress() (common.Address, error) {
	addr := c.Network.ContractAddresses[c.Network.NetworkVersion]
	if addr == "" {
		return common.Address{}, fmt.Errorf("no contract address for network version %q", c.Network.NetworkVersion)
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid contract address %q for network version %q", addr, c.Network.NetworkVersion)
	}
	return common.HexToAddress(addr), nil
}

// OwnerAddress returns the configured owner
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner.Address)
}

// OwnerKey parses the owner's private key and checks it matches the owner address
func (c *Config) OwnerKey() (*ecdsa.PrivateKey, error) {
	if c.PrivateKey == "" {
		return nil, fmt.Errorf("required environment variable %s not set", EnvOwnerPrivateKey)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid owner private key: %w", err)
	}
	if derived := crypto.PubkeyToAddress(key.PublicKey); derived != c.OwnerAddress() {
		return nil, fmt.Errorf("owner private key belongs to %s, not %s", derived.Hex(), c.Owner.Address)
	}
	return key, nil
}

// Catalog builds the route catalog, falling back to the reference routes
func (c *Config) Catalog() (*routes.Catalog, error) {
	if len(c.Routes) == 0 {
		return routes.Default(), nil
	}
	return routes.NewCatalog(c.Routes)
}

// LoadABI returns the contract ABI override, or "" to use the built-in one
func (c *Config) LoadABI() (string, error) {
	if c.Network.ABIFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.Network.ABIFile)
	if err != nil {
		return "", fmt.Errorf("failed to read ABI file: %w", err)
	}
	return string(data), nil
}

func (t TimingsConfig) ExecInterval() time.Duration {
	return time.Duration(t.ExecIntervalMs) * time.Millisecond
}

func (t TimingsConfig) ReceiptInterval() time.Duration {
	return time.Duration(t.ReceiptIntervalMs) * time.Millisecond
}

func (g GasStationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMs) * time.Millisecond
}
