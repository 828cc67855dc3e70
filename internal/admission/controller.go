// Package admission gates new token deployments against concurrency,
// solvency, and cooldown constraints before delegating to a deployer.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// RejectReason is a machine-readable admission rejection code.
type RejectReason string

const (
	ReasonConcurrency RejectReason = "MAX_CONCURRENT_POSITIONS"
	ReasonSolvency    RejectReason = "INSUFFICIENT_RESERVE"
	ReasonCooldown    RejectReason = "COOLDOWN_ACTIVE"
)

// LedgerBook is the treasury capability the controller needs: a live
// snapshot for the solvency gate and a spend recorder for accepted
// deployments.
type LedgerBook interface {
	CurrentState(ctx context.Context) (*domain.TreasurySnapshot, error)
	RecordSpend(ctx context.Context, amountSOL float64) error
}

// Deployer performs the actual on-chain launch. It is opaque to the
// controller; a failure must be descriptive and is surfaced verbatim.
type Deployer interface {
	Deploy(ctx context.Context, req *domain.DeployRequest) (*domain.DeployResult, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Config holds the admission gate parameters.
type Config struct {
	MaxActivePositions int           // concurrency gate
	SurvivalReserveSOL float64       // balance floor the agent never spends below
	Cooldown           time.Duration // minimum time between accepted deployments
	OverheadBufferSOL  float64       // fixed projected tx/rent overhead per deployment
	DefaultMethod      domain.DeployMethod
}

// DefaultConfig returns the default admission parameters.
func DefaultConfig() Config {
	return Config{
		MaxActivePositions: 3,
		SurvivalReserveSOL: 0.5,
		Cooldown:           30 * time.Minute,
		OverheadBufferSOL:  0.05,
		DefaultMethod:      domain.MethodBondingCurve,
	}
}

// Decision is the outcome of one deployment request.
type Decision struct {
	Accepted bool
	Reason   RejectReason // set on rejection
	Message  string       // human-readable reason

	// Rejection details
	ShortfallSOL float64 // solvency: amount missing to keep the reserve
	WaitMinutes  int     // cooldown: remaining wait, rounded up

	// Acceptance details
	Result   *domain.DeployResult
	Position *domain.Position
	SpentSOL float64
}

// Controller gates deployment requests. Checks run in a fixed order and
// any rejection leaves treasury and registry untouched.
type Controller struct {
	cfg       Config
	positions storage.PositionStore
	treasury  storage.TreasuryStore
	ledger    LedgerBook
	deployers map[domain.DeployMethod]Deployer
	clock     Clock
	logger    *log.Logger
}

// Options for creating a Controller.
type Options struct {
	Config    Config
	Positions storage.PositionStore
	Treasury  storage.TreasuryStore
	Ledger    LedgerBook
	Deployers map[domain.DeployMethod]Deployer
	Clock     Clock // nil means SystemClock
	Logger    *log.Logger
}

// New creates a Controller.
func New(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		cfg:       opts.Config,
		positions: opts.Positions,
		treasury:  opts.Treasury,
		ledger:    opts.Ledger,
		deployers: opts.Deployers,
		clock:     clock,
		logger:    logger,
	}
}

// RequestDeployment runs the admission gates and, if every gate passes,
// delegates to the deployer for the requested (or default) method.
//
// Gate order: concurrency, solvency, cooldown. Each rejection returns a
// Decision with Accepted=false and a distinct reason; no state changes.
// A deployer failure is returned as an error with the collaborator's
// message intact, also with no state changes, and is never retried here.
func (c *Controller) RequestDeployment(ctx context.Context, req *domain.DeployRequest) (*Decision, error) {
	if req == nil {
		return nil, storage.ErrInvalidInput
	}

	method := req.Method
	if method == "" {
		method = c.cfg.DefaultMethod
	}
	if !domain.ValidMethod(method) {
		return nil, fmt.Errorf("unknown deployment method %q", method)
	}

	// Gate 1: concurrency
	active, err := c.positions.CountByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("count active positions: %w", err)
	}
	if active >= c.cfg.MaxActivePositions {
		return &Decision{
			Reason: ReasonConcurrency,
			Message: fmt.Sprintf("already managing %d active positions (max %d)",
				active, c.cfg.MaxActivePositions),
		}, nil
	}

	// Gate 2: solvency. Projected spend includes the fixed overhead buffer.
	snap, err := c.ledger.CurrentState(ctx)
	if err != nil {
		return nil, fmt.Errorf("query treasury: %w", err)
	}
	projected := req.CostSOL() + c.cfg.OverheadBufferSOL
	remaining := snap.SOLBalance - projected
	if remaining < c.cfg.SurvivalReserveSOL {
		shortfall := c.cfg.SurvivalReserveSOL - remaining
		return &Decision{
			Reason:       ReasonSolvency,
			ShortfallSOL: shortfall,
			Message: fmt.Sprintf("deployment would cost %.4f SOL leaving %.4f, below the %.4f reserve (short %.4f)",
				projected, remaining, c.cfg.SurvivalReserveSOL, shortfall),
		}, nil
	}

	// Gate 3: cooldown
	now := c.clock.Now()
	last, err := c.treasury.GetLastDeployment(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read last deployment: %w", err)
	}
	if err == nil {
		elapsed := now.Sub(time.UnixMilli(last))
		if elapsed < c.cfg.Cooldown {
			wait := ceilMinutes(c.cfg.Cooldown - elapsed)
			return &Decision{
				Reason:      ReasonCooldown,
				WaitMinutes: wait,
				Message:     fmt.Sprintf("cooldown active, next deployment possible in %d min", wait),
			}, nil
		}
	}

	deployer, ok := c.deployers[method]
	if !ok {
		return nil, fmt.Errorf("no deployer configured for method %s", method)
	}

	result, err := deployer.Deploy(ctx, req)
	if err != nil {
		// Surface verbatim; caller may re-request.
		return nil, fmt.Errorf("deploy %s: %w", method, err)
	}

	position := &domain.Position{
		Mint:           result.Mint,
		Name:           req.Name,
		Ticker:         req.Ticker,
		Method:         method,
		CreatedAt:      now.UnixMilli(),
		InitialSupply:  result.Supply,
		RetainedSupply: result.RetainedAmount,
		Pool:           result.Pool,
		Status:         domain.StatusActive,
		UpdatedAt:      now.UnixMilli(),
	}
	if err := c.positions.Insert(ctx, position); err != nil {
		return nil, fmt.Errorf("register position %s: %w", result.Mint, err)
	}

	if err := c.treasury.SetLastDeployment(ctx, now.UnixMilli()); err != nil {
		c.logger.Printf("[admission] WARNING: failed to persist cooldown timestamp: %v", err)
	}

	spent := req.CostSOL()
	if err := c.ledger.RecordSpend(ctx, spent); err != nil {
		c.logger.Printf("[admission] WARNING: failed to record spend of %.4f SOL: %v", spent, err)
	}

	c.logger.Printf("[admission] deployed %s (%s) mint=%s spent=%.4f SOL",
		req.Name, method, result.Mint, spent)

	return &Decision{
		Accepted: true,
		Result:   result,
		Position: position,
		SpentSOL: spent,
	}, nil
}

// ceilMinutes rounds a duration up to whole minutes, minimum 1.
func ceilMinutes(d time.Duration) int {
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
