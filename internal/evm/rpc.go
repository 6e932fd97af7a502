package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// NodeClient defines the read-only ledger JSON-RPC interface.
type NodeClient interface {
	// ChainID returns the chain id reported by the node.
	ChainID(ctx context.Context) (uint64, error)

	// CallContract executes an eth_call against the latest block.
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)

	// TransactionReceipt returns the receipt for a transaction hash.
	// Returns nil if the transaction is not mined yet.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// CallMsg is the read-only call payload for eth_call.
type CallMsg struct {
	From *common.Address
	To   common.Address
	Data []byte
}

// Receipt is the subset of a transaction receipt the client needs.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
	GasUsed     uint64
	Logs        []Log
}

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}
