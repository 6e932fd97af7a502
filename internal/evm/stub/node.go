// Package stub provides in-memory evm clients for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"edu-voting/internal/evm"
)

// ErrNoResponse is returned when no response is registered for a call.
var ErrNoResponse = errors.New("no response registered")

// Node implements evm.NodeClient for testing.
// Calls are answered by exact calldata match.
type Node struct {
	mu sync.Mutex

	Chain    uint64
	ChainErr error

	Responses map[string][]byte
	// CallErrs fails calls with matching calldata.
	CallErrs map[string]error
	Receipts map[common.Hash]*evm.Receipt

	calls []evm.CallMsg
}

// NewNode creates a new stub node reporting chain.
func NewNode(chain uint64) *Node {
	return &Node{
		Chain:     chain,
		Responses: make(map[string][]byte),
		CallErrs:  make(map[string]error),
		Receipts:  make(map[common.Hash]*evm.Receipt),
	}
}

// ChainID returns the configured chain id.
func (n *Node) ChainID(_ context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ChainErr != nil {
		return 0, n.ChainErr
	}
	return n.Chain, nil
}

// CallContract answers from the registered responses.
func (n *Node) CallContract(ctx context.Context, msg evm.CallMsg) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, msg)
	key := hexutil.Encode(msg.Data)
	if err, ok := n.CallErrs[key]; ok {
		return nil, err
	}
	out, ok := n.Responses[key]
	if !ok {
		return nil, ErrNoResponse
	}
	return out, nil
}

// TransactionReceipt returns a registered receipt, or nil when pending.
func (n *Node) TransactionReceipt(_ context.Context, hash common.Hash) (*evm.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Receipts[hash], nil
}

// SetResponse registers the output for calldata.
func (n *Node) SetResponse(data, out []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := hexutil.Encode(data)
	n.Responses[key] = out
	delete(n.CallErrs, key)
}

// SetCallError makes calls with calldata fail.
func (n *Node) SetCallError(data []byte, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.CallErrs[hexutil.Encode(data)] = err
}

// Calls returns a copy of all recorded calls.
func (n *Node) Calls() []evm.CallMsg {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]evm.CallMsg, len(n.calls))
	copy(out, n.calls)
	return out
}

// ResetCalls clears the recorded calls.
func (n *Node) ResetCalls() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = nil
}

var _ evm.NodeClient = (*Node)(nil)
