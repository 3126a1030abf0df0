package config

// Config holds all ponzi configuration.
type Config struct {
	Network           string              `json:"network"             mapstructure:"network"`
	ContractAddress   string              `json:"contract_address"    mapstructure:"contract_address"`
	DefaultWallet     string              `json:"default_wallet"      mapstructure:"default_wallet"`
	RPCAlgorithm      string              `json:"rpc_algorithm"       mapstructure:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	CustomRPCs        map[string][]string `json:"custom_rpcs"         mapstructure:"custom_rpcs"`
	ChainPollInterval int                 `json:"chain_poll_interval" mapstructure:"chain_poll_interval"` // seconds
	ConfirmTimeout    int                 `json:"confirm_timeout"     mapstructure:"confirm_timeout"`     // seconds, 0 = wait forever
	RefreshOnConfirm  bool                `json:"refresh_on_confirm"  mapstructure:"refresh_on_confirm"`
	RPCRateLimit      float64             `json:"rpc_rate_limit"      mapstructure:"rpc_rate_limit"` // requests/second, 0 = unlimited
	ListenAddr        string              `json:"listen_addr"         mapstructure:"listen_addr"`
	LogLevel          string              `json:"log_level"           mapstructure:"log_level"`

	// internal: config dir path used for Save()
	configDir string
}
