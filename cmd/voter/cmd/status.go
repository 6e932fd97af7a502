package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [address]",
		Short: "Show whether an account has voted",
		Long: `status reads voters(address) from the contract. Without an address it
restores the wallet session silently and reports the authorised account,
its network and whether it has voted.`,
		Args: cobra.MaximumNArgs(1),
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

			out := cmd.OutOrStdout()
			session := a.session()

			if len(args) == 1 {
				voted, err := session.HasVoted(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "address:   %s\nhas voted: %t\n", args[0], voted)
				return nil
			}

			// network and ledger failures still leave an account to report
			startErr := session.Start(ctx)
			snap := session.Snapshot()
			if !snap.Connected {
				if startErr != nil {
					return startErr
				}
				fmt.Fprintln(out, "no authorised account")
				return nil
			}

			fmt.Fprintf(out, "account:   %s\n", snap.Account.Address)
			fmt.Fprintf(out, "network:   %s (chain %d, required %d)\n",
				snap.Network.Status, snap.Network.CurrentChainID, snap.Network.RequiredChainID)
			if snap.HasVoted != nil {
				fmt.Fprintf(out, "has voted: %t\n", *snap.HasVoted)
			}
			if snap.Error.Message != "" {
				fmt.Fprintf(out, "error:     %s\n", snap.Error.Message)
			}
			return nil
		},
	}
}
