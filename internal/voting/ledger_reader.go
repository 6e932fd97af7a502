package voting

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"edu-voting/internal/contract"
	"edu-voting/internal/domain"
	"edu-voting/internal/observability"
	"edu-voting/internal/storage"
)

// maxPrealloc caps the slice capacity reserved from candidatesCount.
const maxPrealloc = 256

// LedgerReader loads the candidate list from the contract over the node read path.
type LedgerReader struct {
	voting  *contract.Voting
	state   *AppState
	tallies storage.TallySnapshotStore // optional
	logger  *zap.Logger

	// one sync in flight at a time
	syncMu sync.Mutex
}

// NewLedgerReader creates a reader. tallies may be nil.
func NewLedgerReader(voting *contract.Voting, state *AppState, tallies storage.TallySnapshotStore, logger *zap.Logger) *LedgerReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerReader{
		voting:  voting,
		state:   state,
		tallies: tallies,
		logger:  logger.Named("ledger"),
	}
}

// SyncAll reads candidatesCount then every candidate in ascending id order,
// one call at a time, and publishes the result as a new CandidateList.
// On failure the previously published list is kept.
func (r *LedgerReader) SyncAll(ctx context.Context) (domain.CandidateList, error) {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	start := time.Now()
	list, err := r.load(ctx)
	if err != nil {
		observability.RecordLedgerSync("failed", time.Since(start).Seconds())
		r.logger.Warn("candidate sync failed", zap.Error(err))
		return r.state.Candidates(), r.state.fail(newError(ErrLedgerReadFailed, domain.ComponentLedger, err,
			"failed to load candidates: %v", err))
	}

	r.state.publishCandidates(list)
	r.state.clearError(domain.ComponentLedger)
	observability.RecordLedgerSync("success", time.Since(start).Seconds())

	votes := make(map[string]uint64, len(list.Candidates))
	for _, c := range list.Candidates {
		votes[strconv.FormatUint(c.ID, 10)] = c.VoteCount
	}
	observability.UpdateTallies(votes, list.FetchedAt/1000)

	r.logger.Info("candidates synced",
		zap.Int("candidates", len(list.Candidates)),
		zap.Uint64("total_votes", list.TotalVotes()))

	r.recordHistory(ctx, list)
	return list, nil
}

func (r *LedgerReader) load(ctx context.Context) (domain.CandidateList, error) {
	count, err := r.voting.CandidatesCount(ctx)
	if err != nil {
		return domain.CandidateList{}, err
	}

	// count comes from the contract; it only bounds the loop
	list := domain.CandidateList{Candidates: make([]domain.Candidate, 0, min(count, maxPrealloc))}
	for id := uint64(1); id <= count; id++ {
		rec, err := r.voting.Candidate(ctx, id)
		if err != nil {
			return domain.CandidateList{}, err
		}
		if !rec.VoteCount.IsUint64() {
			return domain.CandidateList{}, contract.ErrUnexpectedOutput
		}
		list.Candidates = append(list.Candidates, domain.Candidate{
			ID:        id,
			Name:      rec.Name,
			VoteCount: rec.VoteCount.Uint64(),
		})
	}
	list.FetchedAt = r.state.timestamp()
	return list, nil
}

// recordHistory appends the list to the tally history. Failures are logged only.
func (r *LedgerReader) recordHistory(ctx context.Context, list domain.CandidateList) {
	if r.tallies == nil || len(list.Candidates) == 0 {
		return
	}

	points := domain.TallyPointsFromList(domain.CanonicalAddress(r.voting.Address().Hex()), list)
	ptrs := make([]*domain.TallyPoint, len(points))
	for i := range points {
		ptrs[i] = &points[i]
	}
	if err := r.tallies.InsertBulk(ctx, ptrs); err != nil {
		r.logger.Warn("record tally history", zap.Error(err))
	}
}

// HasVoted reads voters(account) from the contract.
func (r *LedgerReader) HasVoted(ctx context.Context, account string) (bool, error) {
	if !common.IsHexAddress(account) {
		return false, newError(ErrLedgerReadFailed, domain.ComponentLedger, nil, "invalid address %q", account)
	}
	voted, err := r.voting.HasVoted(ctx, common.HexToAddress(account))
	if err != nil {
		return false, newError(ErrLedgerReadFailed, domain.ComponentLedger, err, "failed to read voter status: %v", err)
	}
	return voted, nil
}

// ContractAddress returns the canonical contract address.
func (r *LedgerReader) ContractAddress() string {
	return domain.CanonicalAddress(r.voting.Address().Hex())
}
