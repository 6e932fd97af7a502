package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand(o *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <address>",
		Short: "List journaled vote attempts for an account",
		Long: `history prints the settled vote attempts recorded for an account, oldest
first. Attempts are only journaled when a persistent vote journal
(POSTGRES_DSN) is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			attempts, err := a.journal.GetByAccount(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(attempts)
			}

			if len(attempts) == 0 {
				fmt.Fprintln(out, "no vote attempts recorded")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED_AT\tCANDIDATE\tOUTCOME\tTX\tREASON")
			for _, at := range attempts {
				tx, reason := "-", "-"
				if at.TxHash != nil {
					tx = *at.TxHash
				}
				if at.Reason != nil {
					reason = *at.Reason
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", at.CreatedAt, at.CandidateID, at.Outcome, tx, reason)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print attempts as JSON")
	return cmd
}
