// Package stub provides an in-memory wallet for tests.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"edu-voting/internal/evm"
	"edu-voting/internal/wallet"
)

// Wallet implements wallet.Wallet for testing.
// All fields may be changed between calls; access goes through the mutex.
type Wallet struct {
	mu sync.Mutex

	// Authorised is returned by Accounts (silent).
	Authorised []string
	// Granted is returned by RequestAccounts unless RequestErr is set.
	Granted    []string
	RequestErr error

	Chain    uint64
	ChainErr error
	// SwitchErr fails SwitchNetwork; on success Chain becomes the requested id.
	SwitchErr error
	// SwitchLeavesChain keeps Chain unchanged after a successful switch.
	SwitchLeavesChain bool

	SendErr error
	// Reverted makes mined receipts report failure.
	Reverted bool
	// WaitErr fails Handle.Wait.
	WaitErr error
	// Gate, when set, blocks Handle.Wait until it is closed.
	Gate chan struct{}
	// ChainGate, when set, blocks ChainID until it is closed.
	ChainGate chan struct{}

	RequestCalls int
	SwitchCalls  int
	SendCalls    int
	Sent         []wallet.Tx

	nextHash uint64
}

// NewWallet creates a stub wallet that grants account on chain.
func NewWallet(account string, chain uint64) *Wallet {
	return &Wallet{
		Granted: []string{account},
		Chain:   chain,
	}
}

// Accounts returns Authorised.
func (w *Wallet) Accounts(_ context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.Authorised...), nil
}

// RequestAccounts returns Granted or RequestErr.
func (w *Wallet) RequestAccounts(_ context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.RequestCalls++
	if w.RequestErr != nil {
		return nil, w.RequestErr
	}
	if len(w.Granted) == 0 {
		return nil, wallet.ErrNoAccounts
	}
	w.Authorised = append([]string(nil), w.Granted...)
	return append([]string(nil), w.Granted...), nil
}

// ChainID returns Chain or ChainErr.
func (w *Wallet) ChainID(ctx context.Context) (uint64, error) {
	w.mu.Lock()
	gate := w.ChainGate
	w.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ChainErr != nil {
		return 0, w.ChainErr
	}
	return w.Chain, nil
}

// SwitchNetwork records the request and applies it unless SwitchErr is set.
func (w *Wallet) SwitchNetwork(_ context.Context, chainID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.SwitchCalls++
	if w.SwitchErr != nil {
		return w.SwitchErr
	}
	if !w.SwitchLeavesChain {
		w.Chain = chainID
	}
	return nil
}

// SendTransaction records tx and returns a handle.
func (w *Wallet) SendTransaction(_ context.Context, tx wallet.Tx) (wallet.Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.SendCalls++
	if w.SendErr != nil {
		return nil, w.SendErr
	}
	w.Sent = append(w.Sent, tx)
	w.nextHash++

	return &handle{
		wallet: w,
		hash:   common.BigToHash(new(big.Int).SetUint64(w.nextHash)),
	}, nil
}

// Calls returns request, switch and send call counts.
func (w *Wallet) Calls() (request, switches, sends int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.RequestCalls, w.SwitchCalls, w.SendCalls
}

// Update runs fn with the wallet locked.
func (w *Wallet) Update(fn func(w *Wallet)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

type handle struct {
	wallet *Wallet
	hash   common.Hash
}

func (h *handle) Hash() common.Hash {
	return h.hash
}

func (h *handle) Wait(ctx context.Context) (*evm.Receipt, error) {
	h.wallet.mu.Lock()
	gate := h.wallet.Gate
	h.wallet.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h.wallet.mu.Lock()
	defer h.wallet.mu.Unlock()

	if h.wallet.WaitErr != nil {
		return nil, h.wallet.WaitErr
	}

	receipt := &evm.Receipt{
		TxHash:      h.hash,
		BlockNumber: 1,
		Status:      evm.ReceiptStatusSuccessful,
	}
	if h.wallet.Reverted {
		receipt.Status = evm.ReceiptStatusFailed
		return receipt, fmt.Errorf("%w: tx %s", wallet.ErrTransactionReverted, h.hash.Hex())
	}
	return receipt, nil
}

var _ wallet.Wallet = (*Wallet)(nil)
