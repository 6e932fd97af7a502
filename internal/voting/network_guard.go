package voting

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"edu-voting/internal/domain"
	"edu-voting/internal/observability"
	"edu-voting/internal/wallet"
)

// NetworkGuard ensures the wallet is on the required chain.
//
// State machine: Unknown -> Correct, or Unknown -> Switching -> Correct | Unavailable.
// A failed switch that is not "chain not added" leaves the status at Switching.
// There is no retry loop; the next Validate starts over.
type NetworkGuard struct {
	wallet   wallet.Wallet
	state    *AppState
	required uint64
	logger   *zap.Logger
}

// NewNetworkGuard creates a guard for the required chain id.
func NewNetworkGuard(w wallet.Wallet, state *AppState, required uint64, logger *zap.Logger) *NetworkGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkGuard{
		wallet:   w,
		state:    state,
		required: required,
		logger:   logger.Named("network"),
	}
}

// Validate reads the wallet chain and requests a switch if it differs.
func (g *NetworkGuard) Validate(ctx context.Context) (domain.NetworkState, error) {
	if g.wallet == nil {
		return g.state.Network(), g.state.fail(newError(ErrWalletUnavailable, domain.ComponentNetwork, nil, ""))
	}

	current, err := g.wallet.ChainID(ctx)
	if err != nil {
		return g.state.Network(), g.state.fail(g.readError(err))
	}

	if current == g.required {
		return g.correct(current), nil
	}

	g.publish(domain.NetworkSwitching, current)
	g.logger.Info("requesting network switch",
		zap.Uint64("current_chain_id", current),
		zap.Uint64("required_chain_id", g.required))

	if err := g.wallet.SwitchNetwork(ctx, g.required); err != nil {
		if errors.Is(err, wallet.ErrChainNotAdded) {
			observability.RecordNetworkSwitch("unregistered")
			ns := g.publish(domain.NetworkUnavailable, 0)
			g.logger.Warn("required network not registered in wallet", zap.Error(err))
			return ns, g.state.fail(newError(ErrNetworkUnregistered, domain.ComponentNetwork, err,
				"network %d is not available in your wallet, please add it manually", g.required))
		}

		observability.RecordNetworkSwitch("failed")
		g.logger.Warn("network switch failed", zap.Error(err))
		return g.state.Network(), g.state.fail(newError(ErrNetworkSwitchFailed, domain.ComponentNetwork, err,
			"failed to switch to network %d: %v", g.required, err))
	}

	// the wallet is the source of truth after a switch
	current, err = g.wallet.ChainID(ctx)
	if err != nil {
		observability.RecordNetworkSwitch("failed")
		return g.state.Network(), g.state.fail(g.readError(err))
	}
	if current != g.required {
		observability.RecordNetworkSwitch("failed")
		g.publish(domain.NetworkSwitching, current)
		return g.state.Network(), g.state.fail(newError(ErrNetworkSwitchFailed, domain.ComponentNetwork, nil,
			"wallet is on network %d after switching to %d", current, g.required))
	}

	observability.RecordNetworkSwitch("switched")
	return g.correct(current), nil
}

func (g *NetworkGuard) correct(current uint64) domain.NetworkState {
	ns := g.publish(domain.NetworkCorrect, current)
	g.state.clearError(domain.ComponentNetwork)
	g.logger.Info("network validated", zap.Uint64("chain_id", current))
	return ns
}

func (g *NetworkGuard) publish(status domain.NetworkStatus, current uint64) domain.NetworkState {
	ns := g.state.setNetwork(status, current)
	all := make([]string, len(domain.AllNetworkStatuses))
	for i, s := range domain.AllNetworkStatuses {
		all[i] = s.String()
	}
	observability.SetNetworkStatus(status.String(), all)
	return ns
}

func (g *NetworkGuard) readError(err error) *Error {
	if errors.Is(err, wallet.ErrUnavailable) {
		return newError(ErrWalletUnavailable, domain.ComponentNetwork, err, "")
	}
	return newError(ErrNetworkSwitchFailed, domain.ComponentNetwork, err, "failed to read wallet network: %v", err)
}
