package wallet

import (
	"errors"
	"fmt"

	"edu-voting/internal/evm"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected  = 4001
	CodeUnauthorized  = 4100
	CodeChainNotAdded = 4902
)

var (
	// ErrUnavailable is returned when no wallet capability can be reached.
	ErrUnavailable = errors.New("wallet not detected")

	// ErrUserRejected is returned when the user refuses a wallet prompt.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrChainNotAdded is returned when the requested chain is unknown to the wallet.
	ErrChainNotAdded = errors.New("chain not added to wallet")

	// ErrNoAccounts is returned when authorisation succeeds with an empty account list.
	ErrNoAccounts = errors.New("no accounts authorised")

	// ErrTransactionReverted is returned by Handle.Wait for a failed receipt.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// ProviderError is an error object returned by the wallet provider.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

// Unwrap maps known codes to sentinel errors.
func (e *ProviderError) Unwrap() error {
	switch e.Code {
	case CodeUserRejected, CodeUnauthorized:
		return ErrUserRejected
	case CodeChainNotAdded:
		return ErrChainNotAdded
	}
	return nil
}

// classify converts transport errors into wallet errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr *evm.RPCError
	if errors.As(err, &rpcErr) {
		return &ProviderError{Code: rpcErr.Code, Message: rpcErr.Message}
	}

	if errors.Is(err, evm.ErrUnreachable) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return err
}
