// Package wallet defines the wallet capability used for identity, signing
// and network switching, plus a JSON-RPC implementation of it.
package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"edu-voting/internal/evm"
)

// Wallet is the external wallet capability (EIP-1193 style).
type Wallet interface {
	// Accounts returns already-authorised accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)

	// RequestAccounts asks the user to authorise accounts. May block on a prompt.
	RequestAccounts(ctx context.Context) ([]string, error)

	// ChainID returns the chain the wallet is currently connected to.
	ChainID(ctx context.Context) (uint64, error)

	// SwitchNetwork asks the wallet to switch to chainID. May block on a prompt.
	SwitchNetwork(ctx context.Context, chainID uint64) error

	// SendTransaction signs and broadcasts tx. May block on a prompt.
	SendTransaction(ctx context.Context, tx Tx) (Handle, error)
}

// Tx is an unsigned contract transaction.
type Tx struct {
	From common.Address
	To   common.Address
	Data []byte
	Gas  uint64 // 0 lets the wallet estimate
}

// Handle tracks a broadcast transaction.
type Handle interface {
	// Hash returns the transaction hash.
	Hash() common.Hash

	// Wait blocks until the transaction is mined.
	// Returns ErrTransactionReverted if it executed and failed.
	Wait(ctx context.Context) (*evm.Receipt, error)
}
