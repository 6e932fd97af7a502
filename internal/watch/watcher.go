// Package watch keeps a session's tallies live by refreshing on contract
// logs received over WebSocket, or on a fixed interval.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"edu-voting/internal/contract"
	"edu-voting/internal/domain"
	"edu-voting/internal/evm"
	"edu-voting/internal/observability"
	"edu-voting/internal/voting"
)

// Refresher re-synchronises the candidate list.
type Refresher interface {
	Refresh(ctx context.Context) (domain.CandidateList, error)
}

// Options contains configuration for creating a Watcher.
type Options struct {
	WS        evm.WSClient // optional; nil disables log subscription
	Contract  common.Address
	Refresher Refresher
	Interval  time.Duration // polling interval; zero disables polling
	Logger    *zap.Logger
}

// Watcher triggers a refresh for every batch of relevant contract logs and
// on every polling tick.
type Watcher struct {
	ws        evm.WSClient
	contract  common.Address
	refresher Refresher
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a watcher.
func New(opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		ws:        opts.WS,
		contract:  opts.Contract,
		refresher: opts.Refresher,
		interval:  opts.Interval,
		logger:    logger.Named("watch"),
	}
}

// Filter returns the log filter for Voted and CandidateAdded on the contract.
func (w *Watcher) Filter() evm.LogsFilter {
	return evm.LogsFilter{
		Addresses: []common.Address{w.contract},
		Topics:    [][]common.Hash{{contract.VotedTopic(), contract.CandidateAddedTopic()}},
	}
}

// Run blocks until ctx is cancelled. A closed subscription is not fatal;
// polling, if configured, continues.
func (w *Watcher) Run(ctx context.Context) error {
	var logs <-chan evm.Log
	if w.ws != nil {
		ch, err := w.ws.SubscribeLogs(ctx, w.Filter())
		if err != nil {
			return err
		}
		logs = ch
		w.logger.Info("subscribed to contract logs", zap.String("contract", w.contract.Hex()))
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
		w.logger.Info("polling candidates", zap.Duration("interval", w.interval))
	}

	if logs == nil && tick == nil {
		w.logger.Info("live tallies disabled")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case l, ok := <-logs:
			if !ok {
				w.logger.Warn("log subscription closed")
				logs = nil
				continue
			}
			relevant := w.handle(l)
			// coalesce a burst of logs into one refresh
			for drained := false; !drained; {
				select {
				case next, ok := <-logs:
					if !ok {
						logs = nil
						drained = true
						continue
					}
					relevant = w.handle(next) || relevant
				default:
					drained = true
				}
			}
			if relevant {
				w.refresh(ctx, "log")
			}

		case <-tick:
			w.refresh(ctx, "poll")
		}
	}
}

// handle records a log and reports whether it should trigger a refresh.
func (w *Watcher) handle(l evm.Log) bool {
	if len(l.Topics) == 0 {
		observability.RecordWSLog("unknown")
		return false
	}

	switch l.Topics[0] {
	case contract.VotedTopic():
		observability.RecordWSLog("voted")
		ev, err := contract.ParseVoted(l)
		if err != nil {
			w.logger.Warn("decode Voted log", zap.Error(err))
			return true
		}
		w.logger.Debug("vote observed",
			zap.String("voter", ev.Voter.Hex()),
			zap.Uint64("candidate_id", ev.CandidateID),
			zap.Uint64("block", ev.BlockNumber),
			zap.Bool("removed", l.Removed))
		return true

	case contract.CandidateAddedTopic():
		observability.RecordWSLog("candidate_added")
		ev, err := contract.ParseCandidateAdded(l)
		if err != nil {
			w.logger.Warn("decode CandidateAdded log", zap.Error(err))
			return true
		}
		w.logger.Info("candidate added",
			zap.Uint64("candidate_id", ev.CandidateID),
			zap.String("name", ev.Name))
		return true
	}

	observability.RecordWSLog("unknown")
	return false
}

func (w *Watcher) refresh(ctx context.Context, trigger string) {
	_, err := w.refresher.Refresh(ctx)
	switch {
	case err == nil:
		w.logger.Debug("candidates refreshed", zap.String("trigger", trigger))
	case errors.Is(err, voting.ErrNotReady):
		w.logger.Debug("refresh skipped, session not ready", zap.String("trigger", trigger))
	case ctx.Err() != nil:
	default:
		w.logger.Warn("refresh failed", zap.String("trigger", trigger), zap.Error(err))
	}
}
