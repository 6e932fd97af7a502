// Package api exposes a voting session over HTTP for presentation clients.
package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"edu-voting/internal/domain"
	"edu-voting/internal/observability"
	"edu-voting/internal/storage"
	"edu-voting/internal/voting"
)

// Session is the part of voting.Session the API drives.
type Session interface {
	Snapshot() voting.Snapshot
	Connect(ctx context.Context) (domain.Account, error)
	Disconnect()
	SubmitVoteAsync(ctx context.Context, candidateID uint64) (*domain.VoteAttempt, error)
	HasVoted(ctx context.Context, address string) (bool, error)
	ContractAddress() string
}

// Server is the HTTP front of a session.
type Server struct {
	app     *fiber.App
	session Session
	journal storage.VoteAttemptStore
	tallies storage.TallySnapshotStore
	logger  *zap.Logger
}

// Options contains configuration for creating a Server.
type Options struct {
	Session Session
	Journal storage.VoteAttemptStore
	Tallies storage.TallySnapshotStore
	Logger  *zap.Logger

	AllowOrigins string        // Default: "*"
	Timeout      time.Duration // read/write timeout, default 20s
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string           `json:"error"`
	State *voting.Snapshot `json:"state,omitempty"`
}

// ConnectResponse is the JSON body for POST /api/connect.
type ConnectResponse struct {
	Account domain.Account  `json:"account"`
	State   voting.Snapshot `json:"state"`
}

// VoterResponse is the JSON body for GET /api/voters/:address.
type VoterResponse struct {
	Address  string `json:"address"`
	HasVoted bool   `json:"has_voted"`
}

// NewServer creates the server and registers all routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	origins := opts.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			ReadTimeout:           timeout,
			WriteTimeout:          timeout,
			DisableStartupMessage: true,
		}),
		session: opts.Session,
		journal: opts.Journal,
		tallies: opts.Tallies,
		logger:  logger.Named("api"),
	}

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{AllowOrigins: origins}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(observability.Handler()))

	api := s.app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/connect", s.handleConnect)
	api.Post("/disconnect", s.handleDisconnect)
	api.Post("/votes/:id", s.handleVote)
	api.Get("/votes", s.handleVotes)
	api.Get("/voters/:address", s.handleVoter)
	api.Get("/tallies", s.handleLatestTallies)
	api.Get("/tallies/:id/history", s.handleTallyHistory)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("api listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

func (s *Server) handleConnect(c *fiber.Ctx) error {
	account, err := s.session.Connect(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(ConnectResponse{Account: account, State: s.session.Snapshot()})
}

func (s *Server) handleDisconnect(c *fiber.Ctx) error {
	s.session.Disconnect()
	return c.JSON(s.session.Snapshot())
}

// handleVote claims the Pending slot and answers 202; the attempt settles in the background.
func (s *Server) handleVote(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "candidate id must be a positive integer"})
	}

	attempt, err := s.session.SubmitVoteAsync(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(attempt)
}

func (s *Server) handleVotes(c *fiber.Ctx) error {
	account := c.Query("account")
	if !common.IsHexAddress(account) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "account query parameter must be an address"})
	}

	attempts, err := s.journal.GetByAccount(c.UserContext(), account)
	if err != nil {
		return s.fail(c, err)
	}
	if attempts == nil {
		attempts = []*domain.VoteAttempt{}
	}
	return c.JSON(attempts)
}

func (s *Server) handleVoter(c *fiber.Ctx) error {
	address := c.Params("address")
	if !common.IsHexAddress(address) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid address"})
	}

	voted, err := s.session.HasVoted(c.UserContext(), address)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(VoterResponse{Address: domain.CanonicalAddress(address), HasVoted: voted})
}

func (s *Server) handleLatestTallies(c *fiber.Ctx) error {
	points, err := s.tallies.GetLatest(c.UserContext(), s.session.ContractAddress())
	if err != nil {
		return s.fail(c, err)
	}
	if points == nil {
		points = []*domain.TallyPoint{}
	}
	return c.JSON(points)
}

// handleTallyHistory returns the series for one candidate, optionally bounded by
// from/to (Unix ms, inclusive).
func (s *Server) handleTallyHistory(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "candidate id must be a positive integer"})
	}

	ctx := c.UserContext()
	contract := s.session.ContractAddress()

	var points []*domain.TallyPoint
	if c.Query("from") == "" && c.Query("to") == "" {
		points, err = s.tallies.GetByCandidateID(ctx, contract, id)
	} else {
		from, ferr := strconv.ParseInt(c.Query("from", "0"), 10, 64)
		to, terr := strconv.ParseInt(c.Query("to", strconv.FormatInt(time.Now().UnixMilli(), 10)), 10, 64)
		if ferr != nil || terr != nil || from > to {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "from/to must be Unix milliseconds with from <= to"})
		}
		points, err = s.tallies.GetByTimeRange(ctx, contract, id, from, to)
	}
	if err != nil {
		return s.fail(c, err)
	}
	if points == nil {
		points = []*domain.TallyPoint{}
	}
	return c.JSON(points)
}

// fail writes err with its HTTP status and the current state.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	snap := s.session.Snapshot()
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), State: &snap})
}

// StatusFor maps session and storage errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, voting.ErrAlreadyPending):
		return fiber.StatusConflict
	case errors.Is(err, voting.ErrNotReady):
		return fiber.StatusPreconditionFailed
	case errors.Is(err, voting.ErrWalletUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, voting.ErrUserDenied):
		return fiber.StatusForbidden
	case errors.Is(err, voting.ErrVoteRejected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, voting.ErrNetworkUnregistered),
		errors.Is(err, voting.ErrNetworkSwitchFailed),
		errors.Is(err, voting.ErrLedgerReadFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
