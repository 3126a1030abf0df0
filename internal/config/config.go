package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultAlgorithm    = "fastest"
	defaultPollInterval = 4
	defaultLogLevel     = "info"

	configFile  = "config.json"
	walletsFile = "wallets.json"
	logFile     = "ponzi.log"
	keyringDir  = "keyring"
)

// Keys accepted by Set and the env/flag overlay.
var Keys = []string{
	"network",
	"contract_address",
	"default_wallet",
	"rpc_algorithm",
	"chain_poll_interval",
	"confirm_timeout",
	"refresh_on_confirm",
	"rpc_rate_limit",
	"listen_addr",
	"log_level",
}

// DefaultDir returns ~/.ponzi.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".ponzi"), nil
}

// Load reads config from dir (or creates defaults). dir defaults to ~/.ponzi.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set assigns a single key from its string form, as typed on the command
// line or read from the environment.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "network":
		c.Network = strings.ToLower(value)
	case "contract_address":
		if !common.IsHexAddress(value) {
			return fmt.Errorf("contract_address: %q is not an address", value)
		}
		c.ContractAddress = value
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		switch value {
		case "fastest", "round-robin", "failover":
			c.RPCAlgorithm = value
		default:
			return fmt.Errorf("rpc_algorithm: want fastest, round-robin or failover, got %q", value)
		}
	case "chain_poll_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("chain_poll_interval: want a positive number of seconds, got %q", value)
		}
		c.ChainPollInterval = n
	case "confirm_timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("confirm_timeout: want seconds (0 = none), got %q", value)
		}
		c.ConfirmTimeout = n
	case "refresh_on_confirm":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("refresh_on_confirm: %w", err)
		}
		c.RefreshOnConfirm = b
	case "rpc_rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("rpc_rate_limit: want requests per second, got %q", value)
		}
		c.RPCRateLimit = f
	case "listen_addr":
		c.ListenAddr = value
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
			c.LogLevel = value
		default:
			return fmt.Errorf("log_level: want debug, info, warn or error, got %q", value)
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Get returns a key's value in the form Set accepts.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "network":
		return c.Network, nil
	case "contract_address":
		return c.ContractAddress, nil
	case "default_wallet":
		return c.DefaultWallet, nil
	case "rpc_algorithm":
		return c.RPCAlgorithm, nil
	case "chain_poll_interval":
		return strconv.Itoa(c.ChainPollInterval), nil
	case "confirm_timeout":
		return strconv.Itoa(c.ConfirmTimeout), nil
	case "refresh_on_confirm":
		return strconv.FormatBool(c.RefreshOnConfirm), nil
	case "rpc_rate_limit":
		return strconv.FormatFloat(c.RPCRateLimit, 'f', -1, 64), nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("RPC %s must be an http(s) URL", url)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	if len(c.CustomRPCs[network]) == 0 {
		delete(c.CustomRPCs, network)
	}
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.configDir }

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// LogPath is where the terminal UI writes its log.
func (c *Config) LogPath() string { return filepath.Join(c.configDir, logFile) }

// KeyringDir holds the encrypted file keyring when no OS keychain exists.
func (c *Config) KeyringDir() string { return filepath.Join(c.configDir, keyringDir) }

// PollInterval is chain_poll_interval as a duration.
func (c *Config) PollInterval() time.Duration {
	if c.ChainPollInterval <= 0 {
		return DefaultChainPollInterval
	}
	return time.Duration(c.ChainPollInterval) * time.Second
}

// ConfirmTimeoutDuration is confirm_timeout as a duration; 0 means none.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:           DefaultNetwork,
		ContractAddress:   DefaultContractAddress,
		RPCAlgorithm:      defaultAlgorithm,
		CustomRPCs:        make(map[string][]string),
		ChainPollInterval: defaultPollInterval,
		ListenAddr:        DefaultListenAddr,
		LogLevel:          defaultLogLevel,
		configDir:         dir,
	}
}
