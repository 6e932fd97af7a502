package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"edu-voting/internal/evm"
)

// DefaultPollInterval is the receipt polling interval.
const DefaultPollInterval = 2 * time.Second

// Caller performs raw JSON-RPC calls against the wallet provider.
type Caller interface {
	Call(ctx context.Context, method string, params []interface{}, result interface{}) error
}

// ReceiptSource fetches transaction receipts.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*evm.Receipt, error)
}

// RPCWallet implements Wallet over an EIP-1193 JSON-RPC endpoint
// (a wallet bridge or a node with unlocked accounts).
type RPCWallet struct {
	caller       Caller
	receipts     ReceiptSource
	pollInterval time.Duration
}

// Option configures RPCWallet.
type Option func(*RPCWallet)

// WithReceiptSource polls receipts from src instead of the wallet endpoint.
func WithReceiptSource(src ReceiptSource) Option {
	return func(w *RPCWallet) {
		w.receipts = src
	}
}

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *RPCWallet) {
		w.pollInterval = d
	}
}

// NewRPCWallet creates a wallet backed by client.
func NewRPCWallet(client *evm.HTTPClient, opts ...Option) *RPCWallet {
	w := &RPCWallet{
		caller:       client,
		receipts:     client,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dial creates a wallet for endpoint. Prompts block for as long as the
// user takes, so the HTTP timeout and transport retries are disabled.
func Dial(endpoint string, opts ...Option) *RPCWallet {
	client := evm.NewHTTPClient(endpoint,
		evm.WithTimeout(0),
		evm.WithMaxRetries(0),
	)
	return NewRPCWallet(client, opts...)
}

// Accounts returns authorised accounts (eth_accounts).
func (w *RPCWallet) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := w.caller.Call(ctx, "eth_accounts", nil, &accounts); err != nil {
		return nil, classify(err)
	}
	return accounts, nil
}

// RequestAccounts requests authorisation (eth_requestAccounts).
func (w *RPCWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := w.caller.Call(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		return nil, classify(err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// ChainID returns the wallet's current chain (eth_chainId).
func (w *RPCWallet) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := w.caller.Call(ctx, "eth_chainId", nil, &id); err != nil {
		return 0, classify(err)
	}
	return uint64(id), nil
}

// SwitchNetwork requests a chain switch (wallet_switchEthereumChain).
func (w *RPCWallet) SwitchNetwork(ctx context.Context, chainID uint64) error {
	params := []interface{}{
		map[string]string{"chainId": hexutil.EncodeUint64(chainID)},
	}
	if err := w.caller.Call(ctx, "wallet_switchEthereumChain", params, nil); err != nil {
		return classify(err)
	}
	return nil
}

// SendTransaction submits tx for signing and broadcast (eth_sendTransaction).
func (w *RPCWallet) SendTransaction(ctx context.Context, tx Tx) (Handle, error) {
	arg := map[string]interface{}{
		"from": tx.From,
		"to":   tx.To,
		"data": hexutil.Bytes(tx.Data),
	}
	if tx.Gas > 0 {
		arg["gas"] = hexutil.Uint64(tx.Gas)
	}

	var hash common.Hash
	if err := w.caller.Call(ctx, "eth_sendTransaction", []interface{}{arg}, &hash); err != nil {
		return nil, classify(err)
	}

	return &txHandle{
		hash:         hash,
		receipts:     w.receipts,
		pollInterval: w.pollInterval,
	}, nil
}

// txHandle polls for a receipt until mined.
type txHandle struct {
	hash         common.Hash
	receipts     ReceiptSource
	pollInterval time.Duration
}

func (h *txHandle) Hash() common.Hash {
	return h.hash
}

func (h *txHandle) Wait(ctx context.Context) (*evm.Receipt, error) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := h.receipts.TransactionReceipt(ctx, h.hash)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// transient read errors are retried on the next tick
		if err == nil && receipt != nil {
			if !receipt.Succeeded() {
				return receipt, fmt.Errorf("%w: tx %s in block %d", ErrTransactionReverted, h.hash.Hex(), receipt.BlockNumber)
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

var _ Wallet = (*RPCWallet)(nil)
