// Package config resolves the client configuration from flags, environment,
// an optional .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"edu-voting/internal/domain"
)

// Keys. Each maps to the upper-cased environment variable (node_url -> NODE_URL).
const (
	KeyNodeURL           = "node_url"
	KeyNodeWSURL         = "node_ws_url"
	KeyWalletURL         = "wallet_url"
	KeyContractAddress   = "contract_address"
	KeyChainID           = "chain_id"
	KeyPostgresDSN       = "postgres_dsn"
	KeyClickhouseDSN     = "clickhouse_dsn"
	KeyAPIAddr           = "api_addr"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyRefreshInterval   = "refresh_interval"
	KeyVotePrecheck      = "vote_precheck"
	KeyConfirmTimeout    = "confirm_timeout"
	KeyRPCTimeout        = "rpc_timeout"
	KeyRPCMaxRetries     = "rpc_max_retries"
	KeyCandidateAccessor = "candidate_accessor"
)

// DefaultConfigName is the config file searched for in the home directory.
const DefaultConfigName = ".voter"

// Config is the resolved configuration. Immutable after Load.
type Config struct {
	NodeURL         string `mapstructure:"node_url" validate:"required,url"`
	NodeWSURL       string `mapstructure:"node_ws_url" validate:"omitempty,url"`
	WalletURL       string `mapstructure:"wallet_url" validate:"omitempty,url"`
	ContractAddress string `mapstructure:"contract_address" validate:"required,eth_addr"`
	ChainID         uint64 `mapstructure:"chain_id" validate:"required"`

	// Empty DSNs select the in-memory stores.
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn" validate:"omitempty,url"`

	APIAddr   string `mapstructure:"api_addr" validate:"required,hostname_port"`
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json console"`

	// Polling interval used when no WebSocket endpoint is set. Zero disables polling.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gte=0"`

	VotePrecheck bool `mapstructure:"vote_precheck"`
	// How long `voter vote` waits for settlement before exiting. The attempt
	// itself is never aborted. Zero waits until it settles.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" validate:"gte=0"`

	RPCTimeout    time.Duration `mapstructure:"rpc_timeout" validate:"gte=0"`
	RPCMaxRetries int           `mapstructure:"rpc_max_retries" validate:"gte=0"`

	// Contract method used to read each candidate.
	CandidateAccessor string `mapstructure:"candidate_accessor" validate:"oneof=getCandidate candidates"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyNodeURL, "")
	v.SetDefault(KeyNodeWSURL, "")
	v.SetDefault(KeyWalletURL, "")
	v.SetDefault(KeyContractAddress, "")
	v.SetDefault(KeyChainID, domain.RequiredChainID)
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyClickhouseDSN, "")
	v.SetDefault(KeyAPIAddr, "127.0.0.1:8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyRefreshInterval, 30*time.Second)
	v.SetDefault(KeyVotePrecheck, true)
	v.SetDefault(KeyConfirmTimeout, 0)
	v.SetDefault(KeyRPCTimeout, 30*time.Second)
	v.SetDefault(KeyRPCMaxRetries, 3)
	v.SetDefault(KeyCandidateAccessor, "getCandidate")
}

// ReadConfigFile reads cfgFile, or $HOME/.voter.yaml when cfgFile is empty.
// A missing default file is not an error. Returns the file used, if any.
func ReadConfigFile(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("find home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// LoadEnvFile exports KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are not overridden.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if os.Getenv(name) != "" {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves and validates the configuration from v.
// Environment variables override the config file; bound flags override both.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.ContractAddress = strings.TrimSpace(cfg.ContractAddress)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and returns one error naming every invalid field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", strings.ToUpper(fieldKey(fe.Field())), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}

// fieldKey maps a struct field name to its config key.
func fieldKey(field string) string {
	switch field {
	case "NodeURL":
		return KeyNodeURL
	case "NodeWSURL":
		return KeyNodeWSURL
	case "WalletURL":
		return KeyWalletURL
	case "ContractAddress":
		return KeyContractAddress
	case "ChainID":
		return KeyChainID
	case "ClickhouseDSN":
		return KeyClickhouseDSN
	case "APIAddr":
		return KeyAPIAddr
	case "LogLevel":
		return KeyLogLevel
	case "LogFormat":
		return KeyLogFormat
	case "RefreshInterval":
		return KeyRefreshInterval
	case "ConfirmTimeout":
		return KeyConfirmTimeout
	case "RPCTimeout":
		return KeyRPCTimeout
	case "RPCMaxRetries":
		return KeyRPCMaxRetries
	case "CandidateAccessor":
		return KeyCandidateAccessor
	}
	return field
}

// UsesPostgres reports whether the vote journal is persisted in PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.PostgresDSN != ""
}

// UsesClickhouse reports whether tally history is persisted in ClickHouse.
func (c *Config) UsesClickhouse() bool {
	return c.ClickhouseDSN != ""
}
