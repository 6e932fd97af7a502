package voting

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"edu-voting/internal/contract"
	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
	"edu-voting/internal/wallet"
)

// Options contains configuration for creating a Session.
type Options struct {
	Wallet          wallet.Wallet // nil means no wallet capability
	Voting          *contract.Voting
	RequiredChainID uint64 // Default: domain.RequiredChainID
	Vote            VoteConfig

	Journal storage.VoteAttemptStore   // optional
	Tallies storage.TallySnapshotStore // optional

	Logger *zap.Logger
	Now    func() int64 // Unix ms; default time.Now
}

// Session wires the components over one AppState and is the interface
// presentation uses. Every method records failures in the error slot as
// well as returning them.
type Session struct {
	state     *AppState
	guard     *NetworkGuard
	reader    *LedgerReader
	conn      *ConnectionManager
	submitter *VoteSubmitter
	logger    *zap.Logger

	// background settlements started by SubmitVoteAsync
	inflight sync.WaitGroup
}

// NewSession creates a session.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	required := opts.RequiredChainID
	if required == 0 {
		required = domain.RequiredChainID
	}

	state := NewAppState(required)
	if opts.Now != nil {
		state.now = opts.Now
	}

	guard := NewNetworkGuard(opts.Wallet, state, required, logger)
	reader := NewLedgerReader(opts.Voting, state, opts.Tallies, logger)
	conn := NewConnectionManager(opts.Wallet, state, guard, reader, logger)
	submitter := NewVoteSubmitter(opts.Wallet, state, reader, opts.Voting, opts.Journal, opts.Vote, logger)

	return &Session{
		state:     state,
		guard:     guard,
		reader:    reader,
		conn:      conn,
		submitter: submitter,
		logger:    logger,
	}
}

// Start attempts silent reconnection; when an account is already
// authorised it validates the network and loads the candidates.
func (s *Session) Start(ctx context.Context) error {
	account, ok, err := s.conn.Reconnect(ctx)
	if !ok {
		s.logger.Info("no authorised account, waiting for connect")
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("session restored", zap.String("account", account.Address))
	return nil
}

// Connect authorises an account interactively. Idempotent.
func (s *Session) Connect(ctx context.Context) (domain.Account, error) {
	return s.conn.Connect(ctx)
}

// Disconnect forgets the account locally.
func (s *Session) Disconnect() {
	s.conn.Disconnect()
}

// SubmitVote votes for candidateID and blocks until the attempt settles.
// Authorises first if no account is held.
func (s *Session) SubmitVote(ctx context.Context, candidateID uint64) (*domain.VoteAttempt, error) {
	if _, err := s.conn.Connect(ctx); err != nil {
		return nil, err
	}
	return s.submitter.Submit(ctx, candidateID)
}

// SubmitVoteAsync claims the Pending slot and settles in the background.
// The returned attempt is Pending; the outcome appears in Snapshot().LastVote.
func (s *Session) SubmitVoteAsync(ctx context.Context, candidateID uint64) (*domain.VoteAttempt, error) {
	if _, err := s.conn.Connect(ctx); err != nil {
		return nil, err
	}

	attempt, err := s.submitter.Claim(candidateID)
	if err != nil {
		return nil, err
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_, _ = s.submitter.Settle(context.WithoutCancel(ctx), attempt)
	}()

	return attempt, nil
}

// Refresh re-synchronises the candidate list once the network is Correct.
// Returns ErrNotReady otherwise without touching the error slot.
func (s *Session) Refresh(ctx context.Context) (domain.CandidateList, error) {
	if !s.state.Network().IsCorrect() {
		return s.state.Candidates(), ErrNotReady
	}
	return s.reader.SyncAll(ctx)
}

// HasVoted reads voters(address). The result is kept in the snapshot
// when address is the connected account.
func (s *Session) HasVoted(ctx context.Context, address string) (bool, error) {
	address = domain.CanonicalAddress(address)
	voted, err := s.reader.HasVoted(ctx, address)
	if err != nil {
		return false, s.state.fail(err)
	}
	s.state.setHasVoted(address, voted)
	return voted, nil
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// ContractAddress returns the canonical address of the voting contract.
func (s *Session) ContractAddress() string {
	return s.reader.ContractAddress()
}

// Wait blocks until background settlements finish.
func (s *Session) Wait() {
	s.inflight.Wait()
}
