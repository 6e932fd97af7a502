package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"edu-voting/internal/config"
	"edu-voting/internal/contract"
	"edu-voting/internal/evm"
	"edu-voting/internal/storage"
	chstore "edu-voting/internal/storage/clickhouse"
	"edu-voting/internal/storage/memory"
	"edu-voting/internal/storage/migrations"
	pgstore "edu-voting/internal/storage/postgres"
	"edu-voting/internal/voting"
	"edu-voting/internal/wallet"
)

// dbConnectTimeout bounds each database connection attempt.
const dbConnectTimeout = 10 * time.Second

// app holds the clients and stores built from a Config.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	node   *evm.HTTPClient
	voting *contract.Voting
	wallet wallet.Wallet // nil when no wallet endpoint is configured

	journal storage.VoteAttemptStore
	tallies storage.TallySnapshotStore

	closers []func()
}

// newApp connects the node client, wallet and stores. When migrate is set,
// database schemas are brought up to date first.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.node = evm.NewHTTPClient(cfg.NodeURL,
		evm.WithTimeout(cfg.RPCTimeout),
		evm.WithMaxRetries(cfg.RPCMaxRetries),
	)
	a.voting = contract.NewVoting(common.HexToAddress(cfg.ContractAddress), a.node,
		contract.WithCandidateAccessor(cfg.CandidateAccessor))

	if cfg.WalletURL != "" {
		a.wallet = wallet.Dial(cfg.WalletURL, wallet.WithReceiptSource(a.node))
	}

	if err := a.openStores(ctx, migrate); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context, migrate bool) error {
	if a.cfg.UsesPostgres() {
		pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN, pgstore.WithConnectTimeout(dbConnectTimeout))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool, a.logger); err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
		}
		a.journal = pgstore.NewVoteAttemptStore(pool)
		a.logger.Info("vote journal: postgres")
	} else {
		a.journal = memory.NewVoteAttemptStore()
		a.logger.Info("vote journal: in-memory")
	}

	if a.cfg.UsesClickhouse() {
		var (
			conn *chstore.Conn
			err  error
		)
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, a.cfg.ClickhouseDSN, a.logger)
		} else {
			conn, err = chstore.NewConn(ctx, a.cfg.ClickhouseDSN)
		}
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.tallies = chstore.NewTallySnapshotStore(conn)
		a.logger.Info("tally history: clickhouse")
	} else {
		a.tallies = memory.NewTallySnapshotStore()
		a.logger.Info("tally history: in-memory")
	}

	return nil
}

// session builds a voting session over the app's clients.
func (a *app) session() *voting.Session {
	vote := voting.DefaultVoteConfig()
	vote.Precheck = a.cfg.VotePrecheck

	return voting.NewSession(voting.Options{
		Wallet:          a.wallet,
		Voting:          a.voting,
		RequiredChainID: a.cfg.ChainID,
		Vote:            vote,
		Journal:         a.journal,
		Tallies:         a.tallies,
		Logger:          a.logger,
	})
}

// checkNodeChain warns when the node serves a different chain than required.
// Reads still work against any node that hosts the contract.
func (a *app) checkNodeChain(ctx context.Context) {
	chain, err := a.node.ChainID(ctx)
	if err != nil {
		a.logger.Warn("read node chain id", zap.Error(err))
		return
	}
	if chain != a.cfg.ChainID {
		a.logger.Warn("node is on a different chain",
			zap.Uint64("node_chain_id", chain),
			zap.Uint64("required_chain_id", a.cfg.ChainID))
	}
}

// Close releases store connections in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
