package voting

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"edu-voting/internal/domain"
	"edu-voting/internal/observability"
	"edu-voting/internal/wallet"
)

// ConnectionManager owns the session's wallet identity.
type ConnectionManager struct {
	wallet wallet.Wallet // nil when no wallet capability is configured
	state  *AppState
	guard  *NetworkGuard
	reader *LedgerReader
	logger *zap.Logger

	// serialises authorisation so concurrent callers see one prompt
	connectMu sync.Mutex
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(w wallet.Wallet, state *AppState, guard *NetworkGuard, reader *LedgerReader, logger *zap.Logger) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionManager{
		wallet: w,
		state:  state,
		guard:  guard,
		reader: reader,
		logger: logger.Named("connection"),
	}
}

// Connect asks the wallet to authorise an account, then validates the
// network and, once it is Correct, synchronises the candidate list.
// If an account is already held it is returned without any wallet call.
// The returned account stays connected even when validation or sync fails;
// that failure is returned alongside it.
func (m *ConnectionManager) Connect(ctx context.Context) (domain.Account, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if account, ok := m.state.Account(); ok {
		return account, nil
	}

	if m.wallet == nil {
		observability.RecordWalletConnect("interactive", "unavailable")
		return domain.Account{}, m.state.fail(newError(ErrWalletUnavailable, domain.ComponentConnection, nil, ""))
	}

	accounts, err := m.wallet.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = wallet.ErrNoAccounts
	}
	if err != nil {
		if errors.Is(err, wallet.ErrUnavailable) {
			observability.RecordWalletConnect("interactive", "unavailable")
			return domain.Account{}, m.state.fail(newError(ErrWalletUnavailable, domain.ComponentConnection, err, ""))
		}
		observability.RecordWalletConnect("interactive", "denied")
		m.logger.Info("account access denied", zap.Error(err))
		return domain.Account{}, m.state.fail(newError(ErrUserDenied, domain.ComponentConnection, err, ""))
	}

	account := m.adopt(accounts[0], "interactive")
	return account, m.establish(ctx)
}

// Reconnect restores a previously authorised account without prompting.
// Returns ok=false when the wallet has no authorised account.
func (m *ConnectionManager) Reconnect(ctx context.Context) (domain.Account, bool, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if account, ok := m.state.Account(); ok {
		return account, true, nil
	}
	if m.wallet == nil {
		return domain.Account{}, false, nil
	}

	accounts, err := m.wallet.Accounts(ctx)
	if err != nil {
		observability.RecordWalletConnect("silent", "failed")
		m.logger.Debug("silent reconnection failed", zap.Error(err))
		return domain.Account{}, false, nil
	}
	if len(accounts) == 0 {
		observability.RecordWalletConnect("silent", "none")
		return domain.Account{}, false, nil
	}

	account := m.adopt(accounts[0], "silent")
	return account, true, m.establish(ctx)
}

func (m *ConnectionManager) adopt(address, mode string) domain.Account {
	account := domain.NewAccount(address)
	m.state.setAccount(account)
	m.state.clearError(domain.ComponentConnection)
	observability.RecordWalletConnect(mode, "success")
	m.logger.Info("account connected", zap.String("account", account.Address), zap.String("mode", mode))
	return account
}

// establish runs network validation and, if Correct, the first sync.
func (m *ConnectionManager) establish(ctx context.Context) error {
	ns, err := m.guard.Validate(ctx)
	if err != nil {
		return err
	}
	if !ns.IsCorrect() {
		return nil
	}
	if _, err := m.reader.SyncAll(ctx); err != nil {
		return err
	}
	m.refreshHasVoted(ctx)
	return nil
}

// refreshHasVoted reads the voter flag for the connected account. Best effort.
func (m *ConnectionManager) refreshHasVoted(ctx context.Context) {
	account, ok := m.state.Account()
	if !ok {
		return
	}
	voted, err := m.reader.HasVoted(ctx, account.Address)
	if err != nil {
		m.logger.Debug("read voter status", zap.Error(err))
		return
	}
	m.state.setHasVoted(account.Address, voted)
}

// Disconnect forgets the account and resets the network to Unknown. Local only.
// It waits for an in-flight Connect or Reconnect to finish first.
func (m *ConnectionManager) Disconnect() {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.state.clearAccount()
	m.logger.Info("account disconnected")
}

// CurrentAccount returns the held account. Never performs I/O.
func (m *ConnectionManager) CurrentAccount() (domain.Account, bool) {
	return m.state.Account()
}
