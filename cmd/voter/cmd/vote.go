package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"edu-voting/internal/config"
	"edu-voting/internal/domain"
)

func newVoteCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote <candidate-id>",
		Short: "Vote for a candidate and wait for confirmation",
		Long: `vote authorises the wallet account (prompting if needed), makes sure the
wallet is on the required network, and submits a vote for the candidate.
It blocks until the transaction is confirmed or rejected. With
--confirm-timeout the command stops waiting after that long; the
transaction is left with the wallet and may still settle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid candidate id %q", args[0])
			}

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

			attempt, err := submitAndWait(ctx, a.session(), id, cfg.ConfirmTimeout)
			if attempt != nil {
				printAttempt(cmd.OutOrStdout(), attempt)
			}
			return err
		},
	}

	cmd.Flags().Bool("precheck", true, "skip the transaction when the account has already voted")
	cmd.Flags().Duration("confirm-timeout", 0, "stop waiting for settlement after this long (0 waits until settled)")
	bindFlags(o.v, cmd.Flags(), map[string]string{
		"precheck":        config.KeyVotePrecheck,
		"confirm-timeout": config.KeyConfirmTimeout,
	})

	return cmd
}

// errStillPending is returned when the command stops waiting on an unsettled vote.
var errStillPending = errors.New("vote still pending: the transaction may settle later")

// voteSubmitter is the part of voting.Session the vote command needs.
type voteSubmitter interface {
	SubmitVote(ctx context.Context, candidateID uint64) (*domain.VoteAttempt, error)
}

// submitAndWait runs the vote and waits at most wait for it to settle.
// The vote keeps running when the wait expires.
func submitAndWait(ctx context.Context, s voteSubmitter, id uint64, wait time.Duration) (*domain.VoteAttempt, error) {
	if wait <= 0 {
		return s.SubmitVote(ctx, id)
	}

	type result struct {
		attempt *domain.VoteAttempt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		attempt, err := s.SubmitVote(ctx, id)
		done <- result{attempt, err}
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.attempt, r.err
	case <-timer.C:
		return nil, errStillPending
	}
}

func printAttempt(w io.Writer, a *domain.VoteAttempt) {
	fmt.Fprintf(w, "attempt:   %s\n", a.AttemptID)
	fmt.Fprintf(w, "account:   %s\n", a.Account)
	fmt.Fprintf(w, "candidate: %d\n", a.CandidateID)
	fmt.Fprintf(w, "outcome:   %s\n", a.Outcome)
	if a.TxHash != nil {
		fmt.Fprintf(w, "tx:        %s\n", *a.TxHash)
	}
	if a.BlockNumber != nil {
		fmt.Fprintf(w, "block:     %d\n", *a.BlockNumber)
	}
	if a.Reason != nil {
		fmt.Fprintf(w, "reason:    %s\n", *a.Reason)
	}
}
