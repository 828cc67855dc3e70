package agent

import (
	"context"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/harvest"
	"solana-launch-agent/internal/observability"
)

// Periodic tasks. Each logs failures and moves on; retry is the next
// scheduled tick, never an inline loop.

// RunPortfolioCheck applies lifecycle transitions to active positions.
func (a *Agent) RunPortfolioCheck(ctx context.Context) {
	a.runTask(ctx, "portfolio_check", func(ctx context.Context) error {
		a.mu.Lock()
		defer a.mu.Unlock()

		report, err := a.monitor.Run(ctx)
		if err != nil {
			return err
		}

		m := observability.DefaultMetrics
		m.PositionsMarkedDead.Add(float64(len(report.MarkedDead)))
		m.PositionsGraduated.Add(float64(len(report.Graduated)))
		m.ActivePositions.Set(float64(report.Checked - len(report.MarkedDead) - len(report.Graduated)))
		return nil
	})
}

// RunFeeHarvest harvests all active positions and settles earnings.
func (a *Agent) RunFeeHarvest(ctx context.Context) {
	a.runTask(ctx, "fee_harvest", func(ctx context.Context) error {
		out := a.HarvestFees(ctx, harvest.Scope{})
		if out.Error != "" {
			return taskError(out.Error)
		}
		observability.DefaultMetrics.LastSuccessfulHarvest.Set(float64(time.Now().Unix()))
		if out.Result.TotalSOL > 0 {
			a.logger.Printf("[agent] harvested %.4f SOL across %d positions",
				out.Result.TotalSOL, len(out.Result.Positions))
		}
		return nil
	})
}

// RunTreasuryRebalance evaluates the survival tier; the mapper bridges
// stable funds into compute credits when the tier calls for it.
func (a *Agent) RunTreasuryRebalance(ctx context.Context) {
	a.runTask(ctx, "treasury_rebalance", func(ctx context.Context) error {
		out := a.CheckTreasury(ctx)
		if out.Error != "" {
			return taskError(out.Error)
		}
		a.logger.Printf("[agent] treasury: tier=%s credits=%.1f runway=%.1fh",
			out.Survival.Tier, out.Survival.ComputeCredits, out.Survival.RunwayHours)
		if out.Survival.Tier == domain.TierDead {
			a.logger.Printf("[agent] %s", out.Survival.Action)
		}
		return nil
	})
}

// RunStrategyReview appends a performance record and prunes the history
// to the rolling window.
func (a *Agent) RunStrategyReview(ctx context.Context) {
	a.runTask(ctx, "strategy_review", func(ctx context.Context) error {
		snap, err := a.ledger.CurrentState(ctx)
		if err != nil {
			return err
		}
		active, err := a.positions.CountByStatus(ctx, domain.StatusActive)
		if err != nil {
			return err
		}

		record := &domain.PerformanceRecord{
			RecordedAt:      time.Now().UnixMilli(),
			SOLBalance:      snap.SOLBalance,
			USDCBalance:     snap.USDCBalance,
			ComputeCredits:  snap.ComputeCredits,
			TotalInvested:   snap.TotalInvested,
			TotalEarned:     snap.TotalEarned,
			NetPnL:          snap.NetPnL(),
			ActivePositions: active,
			Tier:            a.survival.Tier(snap.ComputeCredits),
		}

		if err := a.performance.Append(ctx, record); err != nil {
			return err
		}
		return a.performance.Prune(ctx, domain.PerformanceHistoryLimit)
	})
}

// runTask wraps a periodic task with duration/status metrics and
// failure logging.
func (a *Agent) runTask(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	m := observability.DefaultMetrics
	m.TaskDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		m.TaskRunsTotal.WithLabelValues(name, "failure").Inc()
		a.logger.Printf("[agent] task %s failed after %s: %v", name, elapsed.Round(time.Millisecond), err)
		return
	}
	m.TaskRunsTotal.WithLabelValues(name, "success").Inc()
	m.LastSuccessfulHeartbeat.Set(float64(time.Now().Unix()))
}

// taskError adapts an outcome's error string back to an error value.
type taskError string

func (e taskError) Error() string { return string(e) }
