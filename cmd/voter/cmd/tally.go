package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"edu-voting/internal/config"
	"edu-voting/internal/contract"
	"edu-voting/internal/reporting"
	"edu-voting/internal/voting"
)

func newTallyCommand(o *rootOptions) *cobra.Command {
	var (
		format string
		window time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Print the current candidate tallies",
		Long: `tally reads every candidate from the contract and prints the tallies.
No wallet is needed. With --window and a tally history store, each row also
shows the change over that period.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, o.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()
			a.checkNodeChain(ctx)

			reader := voting.NewLedgerReader(a.voting, voting.NewAppState(cfg.ChainID), a.tallies, o.logger)
			list, err := reader.SyncAll(ctx)
			if err != nil {
				return err
			}

			report, err := reporting.NewGenerator(a.tallies).Generate(ctx, reader.ContractAddress(), list, window)
			if err != nil {
				return err
			}
			return reporting.Render(cmd.OutOrStdout(), reporting.Format(strings.ToLower(format)), report)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(reporting.FormatTable), fmt.Sprintf("output format %v", reporting.Formats))
	cmd.Flags().DurationVar(&window, "window", 0, "show vote change over this period (needs tally history)")
	cmd.Flags().String("accessor", contract.AccessorGetCandidate,
		fmt.Sprintf("contract method used to read candidates (%s or %s)", contract.AccessorGetCandidate, contract.AccessorCandidates))
	bindFlags(o.v, cmd.Flags(), map[string]string{"accessor": config.KeyCandidateAccessor})

	return cmd
}
