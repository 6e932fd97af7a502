package voting

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"edu-voting/internal/contract"
	"edu-voting/internal/domain"
	"edu-voting/internal/idhash"
	"edu-voting/internal/observability"
	"edu-voting/internal/storage"
	"edu-voting/internal/wallet"
)

// VoteConfig holds vote submission parameters.
type VoteConfig struct {
	// Precheck reads voters(account) before sending and rejects locally
	// when the account has already voted.
	Precheck bool
	// Gas limit passed to the wallet. Zero lets the wallet estimate.
	Gas uint64
}

// DefaultVoteConfig returns the default vote configuration.
func DefaultVoteConfig() VoteConfig {
	return VoteConfig{
		Precheck: true,
	}
}

// reasonAlreadyVoted is the rejection reason when the precheck finds a recorded vote.
const reasonAlreadyVoted = "account has already voted"

// VoteSubmitter runs the Pending -> Confirmed | Rejected attempt machine.
type VoteSubmitter struct {
	wallet  wallet.Wallet
	state   *AppState
	reader  *LedgerReader
	voting  *contract.Voting
	journal storage.VoteAttemptStore // optional
	config  VoteConfig
	logger  *zap.Logger
}

// NewVoteSubmitter creates a submitter. journal may be nil.
func NewVoteSubmitter(
	w wallet.Wallet,
	state *AppState,
	reader *LedgerReader,
	voting *contract.Voting,
	journal storage.VoteAttemptStore,
	config VoteConfig,
	logger *zap.Logger,
) *VoteSubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteSubmitter{
		wallet:  w,
		state:   state,
		reader:  reader,
		voting:  voting,
		journal: journal,
		config:  config,
		logger:  logger.Named("vote"),
	}
}

// Submit casts a vote for candidateID and blocks until it settles.
// The returned attempt is Confirmed or Rejected unless a precondition failed,
// in which case it is nil.
func (s *VoteSubmitter) Submit(ctx context.Context, candidateID uint64) (*domain.VoteAttempt, error) {
	attempt, err := s.Claim(candidateID)
	if err != nil {
		return nil, err
	}
	return s.Settle(ctx, attempt)
}

// Claim checks preconditions and reserves the account's Pending slot.
// No network call is made.
func (s *VoteSubmitter) Claim(candidateID uint64) (*domain.VoteAttempt, error) {
	snap := s.state.Snapshot()

	if !snap.Connected {
		return nil, s.state.fail(newError(ErrNotReady, domain.ComponentVote, nil, "connect a wallet before voting"))
	}
	if !snap.Network.IsCorrect() {
		return nil, s.state.fail(newError(ErrNotReady, domain.ComponentVote, nil,
			"switch to network %d before voting", snap.Network.RequiredChainID))
	}
	if !snap.Candidates.Contains(candidateID) {
		return nil, s.state.fail(newError(ErrNotReady, domain.ComponentVote, nil,
			"candidate %d does not exist", candidateID))
	}

	createdAt := s.state.timestamp()
	attempt := &domain.VoteAttempt{
		AttemptID:   idhash.ComputeAttemptID(snap.Account.Address, candidateID, snap.Network.CurrentChainID, createdAt),
		Account:     snap.Account.Address,
		CandidateID: candidateID,
		ChainID:     snap.Network.CurrentChainID,
		Outcome:     domain.VotePending,
		CreatedAt:   createdAt,
	}

	if err := s.state.claimPending(attempt); err != nil {
		s.logger.Info("duplicate vote submission ignored", zap.String("account", attempt.Account))
		return nil, s.state.fail(newError(ErrAlreadyPending, domain.ComponentVote, nil, ""))
	}
	observability.UpdatePendingVotes(s.state.PendingCount())

	s.logger.Info("vote pending",
		zap.String("attempt_id", attempt.AttemptID),
		zap.String("account", attempt.Account),
		zap.Uint64("candidate_id", candidateID))

	return attempt.Clone(), nil
}

// Settle sends a claimed attempt through the wallet and waits for the receipt.
// Neither caller cancellation nor a caller deadline aborts it: a Pending
// attempt resolves only through the wallet. A Confirmed attempt triggers
// exactly one candidate sync.
func (s *VoteSubmitter) Settle(ctx context.Context, attempt *domain.VoteAttempt) (*domain.VoteAttempt, error) {
	ctx = context.WithoutCancel(ctx)

	attempt = attempt.Clone()
	cause := s.send(ctx, attempt)

	settledAt := s.state.timestamp()
	attempt.SettledAt = &settledAt
	if cause != nil {
		reason := cause.Error()
		attempt.Outcome = domain.VoteRejected
		attempt.Reason = &reason
	} else {
		attempt.Outcome = domain.VoteConfirmed
	}

	s.state.settlePending(attempt)
	observability.UpdatePendingVotes(s.state.PendingCount())
	observability.RecordVoteSettled(attempt.Outcome.String(), float64(settledAt-attempt.CreatedAt)/1000)
	s.record(ctx, attempt)

	if cause != nil {
		s.logger.Warn("vote rejected",
			zap.String("attempt_id", attempt.AttemptID),
			zap.Error(cause))
		return attempt.Clone(), s.state.fail(newError(ErrVoteRejected, domain.ComponentVote, cause, ""))
	}

	s.state.clearError(domain.ComponentVote)
	s.logger.Info("vote confirmed",
		zap.String("attempt_id", attempt.AttemptID),
		zap.Stringp("tx_hash", attempt.TxHash))

	// a failed refresh is reported through the ledger error slot
	_, _ = s.reader.SyncAll(ctx)
	return attempt.Clone(), nil
}

// send runs the optional precheck, the transaction and the receipt wait.
// It fills TxHash and BlockNumber on attempt as they become known.
func (s *VoteSubmitter) send(ctx context.Context, attempt *domain.VoteAttempt) error {
	if s.wallet == nil {
		return wallet.ErrUnavailable
	}

	if s.config.Precheck {
		voted, err := s.reader.HasVoted(ctx, attempt.Account)
		switch {
		case err != nil:
			s.logger.Debug("vote precheck skipped", zap.Error(err))
		case voted:
			s.state.setHasVoted(attempt.Account, true)
			return errors.New(reasonAlreadyVoted)
		}
	}

	data, err := contract.PackVote(attempt.CandidateID)
	if err != nil {
		return fmt.Errorf("pack vote: %w", err)
	}

	handle, err := s.wallet.SendTransaction(ctx, wallet.Tx{
		From: common.HexToAddress(attempt.Account),
		To:   s.voting.Address(),
		Data: data,
		Gas:  s.config.Gas,
	})
	if err != nil {
		return err
	}

	hash := handle.Hash().Hex()
	attempt.TxHash = &hash

	receipt, err := handle.Wait(ctx)
	if receipt != nil {
		block := receipt.BlockNumber
		attempt.BlockNumber = &block
	}
	if err != nil {
		return err
	}
	if receipt == nil {
		return fmt.Errorf("no receipt for tx %s", hash)
	}
	if !receipt.Succeeded() {
		return fmt.Errorf("%w: tx %s", wallet.ErrTransactionReverted, hash)
	}
	return nil
}

// record appends a settled attempt to the journal. Failures are logged only.
func (s *VoteSubmitter) record(ctx context.Context, attempt *domain.VoteAttempt) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Insert(ctx, attempt); err != nil {
		s.logger.Warn("journal vote attempt",
			zap.String("attempt_id", attempt.AttemptID),
			zap.Error(err))
	}
}
