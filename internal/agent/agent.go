// Package agent exposes the host-facing surface: named on-demand
// operations and periodic tasks. Every operation returns a structured
// outcome with an Error field instead of propagating failures; nothing
// escapes this boundary, including panics.
package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"solana-launch-agent/internal/admission"
	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/harvest"
	"solana-launch-agent/internal/monitor"
	"solana-launch-agent/internal/observability"
	"solana-launch-agent/internal/storage"
	"solana-launch-agent/internal/survival"
	"solana-launch-agent/internal/treasury"
)

// Payer transfers SOL to an external address and returns a reference.
type Payer interface {
	Transfer(ctx context.Context, to string, amountSOL float64) (string, error)
}

// Config for the agent surface.
type Config struct {
	// PayoutAddress receives a share of harvested fees. Empty disables
	// the payout split.
	PayoutAddress string
	// PayoutShare is the fraction of each harvest paid out, in [0, 1].
	PayoutShare float64
}

// Agent wires the core services behind the host-facing operations.
// Registry-mutating operations are serialized behind one mutex so a
// heartbeat harvest and a tool-triggered deployment cannot interleave.
type Agent struct {
	cfg         Config
	admission   *admission.Controller
	harvester   *harvest.Harvester
	ledger      *treasury.Ledger
	survival    *survival.Mapper
	monitor     *monitor.Monitor
	positions   storage.PositionStore
	performance storage.PerformanceStore
	payer       Payer
	logger      *log.Logger

	mu sync.Mutex
}

// Options for creating an Agent.
type Options struct {
	Config      Config
	Admission   *admission.Controller
	Harvester   *harvest.Harvester
	Ledger      *treasury.Ledger
	Survival    *survival.Mapper
	Monitor     *monitor.Monitor
	Positions   storage.PositionStore
	Performance storage.PerformanceStore
	Payer       Payer // nil disables the payout split
	Logger      *log.Logger
}

// New creates an Agent.
func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Agent{
		cfg:         opts.Config,
		admission:   opts.Admission,
		harvester:   opts.Harvester,
		ledger:      opts.Ledger,
		survival:    opts.Survival,
		monitor:     opts.Monitor,
		positions:   opts.Positions,
		performance: opts.Performance,
		payer:       opts.Payer,
		logger:      logger,
	}
}

// DeployOutcome is the result of one deploy operation.
type DeployOutcome struct {
	RunID    string
	Decision *admission.Decision
	Error    string
}

// Deploy runs a deployment request through admission control.
func (a *Agent) Deploy(ctx context.Context, req *domain.DeployRequest) (out *DeployOutcome) {
	out = &DeployOutcome{RunID: uuid.NewString()}
	defer catch(a.logger, "deploy", &out.Error)

	a.mu.Lock()
	defer a.mu.Unlock()

	decision, err := a.admission.RequestDeployment(ctx, req)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.Decision = decision
	if decision.Accepted {
		observability.RecordDeploymentAccepted(decision.SpentSOL)
		a.logger.Printf("[agent] run=%s deployed %s (%s), spent %.4f SOL",
			out.RunID, decision.Position.Mint, decision.Position.Ticker, decision.SpentSOL)
	} else {
		observability.RecordDeploymentRejected(string(decision.Reason))
		a.logger.Printf("[agent] run=%s deployment rejected: %s", out.RunID, decision.Message)
	}
	return out
}

// HarvestOutcome is the result of one harvest operation.
type HarvestOutcome struct {
	RunID     string
	Result    *domain.HarvestResult
	PayoutSOL float64 // amount paid to the payout address, 0 if none
	PayoutRef string
	PayoutErr string // payout failure, ledger update already committed
	Error     string
}

// HarvestFees harvests fee income, records it in the ledger, and then
// attempts the configured payout split. The split runs only after the
// earnings are committed and its failure never rolls them back.
func (a *Agent) HarvestFees(ctx context.Context, scope harvest.Scope) (out *HarvestOutcome) {
	out = &HarvestOutcome{RunID: uuid.NewString()}
	defer catch(a.logger, "harvest", &out.Error)

	a.mu.Lock()
	defer a.mu.Unlock()

	result, err := a.harvester.Harvest(ctx, scope)
	if err != nil {
		observability.DefaultMetrics.HarvestRunsTotal.WithLabelValues("failure").Inc()
		out.Error = err.Error()
		return out
	}
	out.Result = result

	if result.TotalSOL > 0 {
		if err := a.ledger.RecordEarning(ctx, result.TotalSOL); err != nil {
			observability.DefaultMetrics.HarvestRunsTotal.WithLabelValues("failure").Inc()
			out.Error = fmt.Sprintf("record earnings: %v", err)
			return out
		}
	}

	observability.DefaultMetrics.HarvestRunsTotal.WithLabelValues("success").Inc()
	for _, p := range result.Positions {
		observability.DefaultMetrics.FeesHarvestedSOL.WithLabelValues("pool").Add(p.PoolFeesSOL)
		observability.DefaultMetrics.FeesHarvestedSOL.WithLabelValues("creator").Add(p.CreatorFeeSOL)
		if p.PoolErr != "" {
			observability.DefaultMetrics.HarvestStreamErrors.WithLabelValues("pool").Inc()
		}
		if p.CreatorErr != "" {
			observability.DefaultMetrics.HarvestStreamErrors.WithLabelValues("creator").Inc()
		}
	}

	a.paySplit(ctx, result.TotalSOL, out)
	return out
}

// paySplit pays the configured share of the harvest to the payout
// address. Called only after the ledger update is committed.
func (a *Agent) paySplit(ctx context.Context, totalSOL float64, out *HarvestOutcome) {
	if a.payer == nil || a.cfg.PayoutAddress == "" || a.cfg.PayoutShare <= 0 || totalSOL <= 0 {
		return
	}

	amount := totalSOL * a.cfg.PayoutShare
	ref, err := a.payer.Transfer(ctx, a.cfg.PayoutAddress, amount)
	if err != nil {
		out.PayoutErr = err.Error()
		a.logger.Printf("[agent] payout of %.4f SOL failed, will retry next cycle: %v", amount, err)
		return
	}
	out.PayoutSOL = amount
	out.PayoutRef = ref
	a.logger.Printf("[agent] paid %.4f SOL to %s (ref %s)", amount, a.cfg.PayoutAddress, ref)
}

// TreasuryOutcome is the result of one treasury check.
type TreasuryOutcome struct {
	RunID    string
	Snapshot *domain.TreasurySnapshot
	Survival *domain.SurvivalStatus
	Error    string
}

// CheckTreasury snapshots the treasury and evaluates the survival tier,
// which may trigger the auto-bridge as a side effect.
func (a *Agent) CheckTreasury(ctx context.Context) (out *TreasuryOutcome) {
	out = &TreasuryOutcome{RunID: uuid.NewString()}
	defer catch(a.logger, "check-treasury", &out.Error)

	snap, err := a.ledger.CurrentState(ctx)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Snapshot = snap
	out.Survival = a.survival.CheckStatus(ctx, snap)

	m := observability.DefaultMetrics
	m.TreasurySOLBalance.Set(snap.SOLBalance)
	m.TreasuryUSDCBalance.Set(snap.USDCBalance)
	m.ComputeCredits.Set(snap.ComputeCredits)
	m.NetPnLSOL.Set(snap.NetPnL())
	m.RunwayHours.Set(out.Survival.RunwayHours)
	observability.RecordSurvivalTier(string(out.Survival.Tier))

	return out
}

// PortfolioOutcome is the result of one portfolio check.
type PortfolioOutcome struct {
	RunID        string
	Positions    []*domain.Position
	Active       int
	TotalFeesSOL float64
	Error        string
}

// CheckPortfolio lists every tracked position with aggregate fee totals.
func (a *Agent) CheckPortfolio(ctx context.Context) (out *PortfolioOutcome) {
	out = &PortfolioOutcome{RunID: uuid.NewString()}
	defer catch(a.logger, "check-portfolio", &out.Error)

	positions, err := a.positions.GetAll(ctx)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.Positions = positions
	for _, p := range positions {
		if p.Status == domain.StatusActive {
			out.Active++
		}
		out.TotalFeesSOL += p.FeesEarnedSOL
	}

	observability.DefaultMetrics.ActivePositions.Set(float64(out.Active))
	return out
}

// HistoryOutcome is the result of one performance history query.
type HistoryOutcome struct {
	RunID   string
	Records []*domain.PerformanceRecord // newest first
	Error   string
}

// ReviewHistory returns the rolling strategy-review history, newest
// record first.
func (a *Agent) ReviewHistory(ctx context.Context) (out *HistoryOutcome) {
	out = &HistoryOutcome{RunID: uuid.NewString()}
	defer catch(a.logger, "review-history", &out.Error)

	records, err := a.performance.GetRecent(ctx, domain.PerformanceHistoryLimit)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.Records = records
	return out
}

// catch converts a panic into the outcome's error field.
func catch(logger *log.Logger, op string, errOut *string) {
	if r := recover(); r != nil {
		*errOut = fmt.Sprintf("internal error: %v", r)
		logger.Printf("[agent] panic in %s: %v", op, r)
	}
}
