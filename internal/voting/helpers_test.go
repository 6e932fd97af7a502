package voting_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"edu-voting/internal/contract"
	contractstub "edu-voting/internal/contract/stub"
	"edu-voting/internal/domain"
	"edu-voting/internal/evm"
	evmstub "edu-voting/internal/evm/stub"
	"edu-voting/internal/storage/memory"
	"edu-voting/internal/voting"
	walletstub "edu-voting/internal/wallet/stub"
)

const testAccount = "0x00000000000000000000000000000000000000A1"

var testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// countingCaller wraps a stub node, counting calls per selector and
// tracking the highest number of calls in flight at once.
type countingCaller struct {
	node  *evmstub.Node
	delay time.Duration

	mu          sync.Mutex
	counts      map[string]int
	order       []string
	inflight    int
	maxInflight int
}

func newCountingCaller(node *evmstub.Node) *countingCaller {
	return &countingCaller{node: node, counts: make(map[string]int)}
}

func (c *countingCaller) CallContract(ctx context.Context, msg evm.CallMsg) ([]byte, error) {
	key := hexutil.Encode(msg.Data)
	sel := key[:10]

	c.mu.Lock()
	c.counts[sel]++
	c.order = append(c.order, key)
	c.inflight++
	if c.inflight > c.maxInflight {
		c.maxInflight = c.inflight
	}
	c.mu.Unlock()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	out, err := c.node.CallContract(ctx, msg)

	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
	return out, err
}

// syncs returns the number of candidatesCount reads, one per SyncAll.
func (c *countingCaller) syncs() int {
	call, _ := contract.PackCandidatesCount()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[hexutil.Encode(call)]
}

func (c *countingCaller) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func (c *countingCaller) peak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInflight
}

func (c *countingCaller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
	c.order = nil
	c.maxInflight = 0
}

type fixture struct {
	node    *evmstub.Node
	caller  *countingCaller
	wallet  *walletstub.Wallet
	journal *memory.VoteAttemptStore
	tallies *memory.TallySnapshotStore
	session *voting.Session
}

func newFixture(t *testing.T, walletChain uint64, names []string, votes []uint64, cfg voting.VoteConfig) *fixture {
	t.Helper()

	node := evmstub.NewNode(domain.RequiredChainID)
	require.NoError(t, contractstub.Seed(node, names, votes))
	require.NoError(t, contractstub.SetVoted(node, common.HexToAddress(testAccount), false))

	f := &fixture{
		node:    node,
		caller:  newCountingCaller(node),
		wallet:  walletstub.NewWallet(testAccount, walletChain),
		journal: memory.NewVoteAttemptStore(),
		tallies: memory.NewTallySnapshotStore(),
	}

	var clock atomic.Int64
	clock.Store(1_700_000_000_000)

	f.session = voting.NewSession(voting.Options{
		Wallet:  f.wallet,
		Voting:  contract.NewVoting(testContract, f.caller),
		Vote:    cfg,
		Journal: f.journal,
		Tallies: f.tallies,
		Now:     func() int64 { return clock.Add(1) },
	})
	return f
}

func canonical(address string) string {
	return domain.CanonicalAddress(address)
}
