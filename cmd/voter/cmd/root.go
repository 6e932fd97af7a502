package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"edu-voting/internal/config"
	"edu-voting/internal/logging"
)

const rootCmdLongDesc = `voter talks to the voting contract on the ledger through a node endpoint
and an EIP-1193 wallet endpoint.

Configuration is read from flags, environment variables (NODE_URL,
CONTRACT_ADDRESS, WALLET_URL, ...), a .env file in the working directory
and $HOME/.voter.yaml, in that order of precedence.`

// rootOptions holds state shared by every subcommand.
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	envFile string

	logger *zap.Logger
}

// NewRootCommand builds the voter command tree.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:           "voter",
		Short:         "Vote on the ledger and watch live tallies",
		Long:          rootCmdLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default is $HOME/.voter.yaml)")
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file to load if present")
	flags.String("node-url", "", "ledger node JSON-RPC endpoint")
	flags.String("node-ws-url", "", "ledger node WebSocket endpoint for live tallies")
	flags.String("wallet-url", "", "EIP-1193 wallet JSON-RPC endpoint")
	flags.String("contract", "", "voting contract address")
	flags.Uint64("chain-id", 0, "required chain id (default 0xA045C)")
	flags.String("postgres-dsn", "", "PostgreSQL DSN for the vote journal (empty: in-memory)")
	flags.String("clickhouse-dsn", "", "ClickHouse DSN for tally history (empty: in-memory)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, console)")

	bindFlags(o.v, flags, map[string]string{
		"node-url":       config.KeyNodeURL,
		"node-ws-url":    config.KeyNodeWSURL,
		"wallet-url":     config.KeyWalletURL,
		"contract":       config.KeyContractAddress,
		"chain-id":       config.KeyChainID,
		"postgres-dsn":   config.KeyPostgresDSN,
		"clickhouse-dsn": config.KeyClickhouseDSN,
		"log-level":      config.KeyLogLevel,
		"log-format":     config.KeyLogFormat,
	})

	root.AddCommand(
		newServeCommand(o),
		newTallyCommand(o),
		newVoteCommand(o),
		newStatusCommand(o),
		newHistoryCommand(o),
		newMigrateCommand(o),
	)

	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bindFlags ties flags to config keys. A flag only overrides env and file
// values when it was set on the command line.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// setup loads the env file and config file, then builds the logger.
func (o *rootOptions) setup() error {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return err
	}

	config.SetDefaults(o.v)
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	o.v.AutomaticEnv()

	used, err := config.ReadConfigFile(o.v, o.cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(o.v.GetString(config.KeyLogLevel), o.v.GetString(config.KeyLogFormat))
	if err != nil {
		return err
	}
	o.logger = logger
	if used != "" {
		o.logger.Debug("using config file", zap.String("path", used))
	}
	return nil
}

// config resolves and validates the full configuration.
func (o *rootOptions) config() (*config.Config, error) {
	return config.Load(o.v)
}
