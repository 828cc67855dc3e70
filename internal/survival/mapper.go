// Package survival maps the treasury onto discrete operating tiers and
// triggers the auto-bridge compensating action when compute runs low.
package survival

import (
	"context"
	"fmt"
	"log"
	"math"

	"solana-launch-agent/internal/domain"
)

// Conversion is the result of a cross-chain stable-asset conversion.
type Conversion struct {
	Reference        string
	EstimatedArrival int64 // Unix timestamp in milliseconds
}

// TopUp is the result of a compute-credit top-up.
type TopUp struct {
	CreditsAdded float64
	NewBalance   float64
}

// Bridge converts stable-asset holdings into compute credits in two
// steps: a cross-chain conversion followed by a credit top-up.
type Bridge interface {
	ConvertAcrossChain(ctx context.Context, amountUSDC float64) (*Conversion, error)
	TopUpCredits(ctx context.Context, amountUSDC float64) (*TopUp, error)
}

// Config holds tier thresholds and burn rates. Thresholds are expressed
// as hours of runway at each tier's own burn rate.
type Config struct {
	FullBurnPerHour     float64 // normal tier burn rate (credits/hour)
	ReducedBurnPerHour  float64 // low_compute tier burn rate
	CriticalBurnPerHour float64 // critical tier burn rate

	NormalRunwayHours float64 // normal when credits > this many hours at full burn
	LowRunwayHours    float64 // low_compute when credits > this many hours at reduced burn

	MinStableForBridge float64 // stable balance must exceed this to auto-bridge
	BridgeFraction     float64 // fraction of stable balance converted
	BridgeCapUSDC      float64 // hard cap per bridge attempt
}

// DefaultConfig returns the standard survival parameters.
func DefaultConfig() Config {
	return Config{
		FullBurnPerHour:     0.5,
		ReducedBurnPerHour:  0.1,
		CriticalBurnPerHour: 0.02,
		NormalRunwayHours:   24,
		LowRunwayHours:      12,
		MinStableForBridge:  1,
		BridgeFraction:      0.8,
		BridgeCapUSDC:       50,
	}
}

// Mapper evaluates survival tiers. The tier is a pure function of the
// instantaneous credit balance with no hysteresis, so a balance sitting
// near a threshold will flap between tiers on consecutive checks. That
// is a known characteristic, not a bug.
type Mapper struct {
	cfg    Config
	bridge Bridge
	logger *log.Logger
}

// NewMapper creates a Mapper. bridge may be nil to disable auto-bridging.
func NewMapper(cfg Config, bridge Bridge, logger *log.Logger) *Mapper {
	if logger == nil {
		logger = log.Default()
	}
	return &Mapper{cfg: cfg, bridge: bridge, logger: logger}
}

// Tier computes the operating tier for a credit balance.
func (m *Mapper) Tier(credits float64) domain.SurvivalTier {
	switch {
	case credits <= 0:
		return domain.TierDead
	case credits > m.cfg.NormalRunwayHours*m.cfg.FullBurnPerHour:
		return domain.TierNormal
	case credits > m.cfg.LowRunwayHours*m.cfg.ReducedBurnPerHour:
		return domain.TierLowCompute
	default:
		return domain.TierCritical
	}
}

// burnRate returns the burn rate the agent runs at in the given tier.
// The dead tier burns nothing by definition.
func (m *Mapper) burnRate(tier domain.SurvivalTier) float64 {
	switch tier {
	case domain.TierNormal:
		return m.cfg.FullBurnPerHour
	case domain.TierLowCompute:
		return m.cfg.ReducedBurnPerHour
	case domain.TierCritical:
		return m.cfg.CriticalBurnPerHour
	default:
		return 0
	}
}

// CheckStatus evaluates the tier for the given treasury snapshot and,
// when the tier is low_compute or critical and stable funds allow,
// attempts the auto-bridge. The attempted amount is appended to the
// action message whether or not the bridge call succeeds; a failure
// appends the error text instead of the confirmation.
func (m *Mapper) CheckStatus(ctx context.Context, snap *domain.TreasurySnapshot) *domain.SurvivalStatus {
	tier := m.Tier(snap.ComputeCredits)

	status := &domain.SurvivalStatus{
		Tier:           tier,
		ComputeCredits: snap.ComputeCredits,
		RunwayHours:    m.runway(snap.ComputeCredits, tier),
	}

	switch tier {
	case domain.TierNormal:
		status.Action = fmt.Sprintf("operating normally, %.1fh of runway", status.RunwayHours)
	case domain.TierDead:
		status.Action = "compute credits exhausted, agent halted"
	default:
		status.Action = fmt.Sprintf("tier %s, %.1fh of runway: throttling non-essential work", tier, status.RunwayHours)
		m.maybeBridge(ctx, snap, status)
	}

	return status
}

// maybeBridge runs the compensating conversion+top-up when stable funds
// exceed the minimum.
func (m *Mapper) maybeBridge(ctx context.Context, snap *domain.TreasurySnapshot, status *domain.SurvivalStatus) {
	if m.bridge == nil || snap.USDCBalance <= m.cfg.MinStableForBridge {
		return
	}

	amount := math.Min(snap.USDCBalance*m.cfg.BridgeFraction, m.cfg.BridgeCapUSDC)
	status.BridgedUSDC = amount

	conv, err := m.bridge.ConvertAcrossChain(ctx, amount)
	if err != nil {
		status.Action += fmt.Sprintf("; bridge of %.2f USDC failed: %v", amount, err)
		m.logger.Printf("[survival] bridge conversion failed: %v", err)
		return
	}

	topUp, err := m.bridge.TopUpCredits(ctx, amount)
	if err != nil {
		status.Action += fmt.Sprintf("; bridged %.2f USDC (ref %s) but top-up failed: %v", amount, conv.Reference, err)
		m.logger.Printf("[survival] credit top-up failed: %v", err)
		return
	}

	status.Action += fmt.Sprintf("; bridged %.2f USDC for %.1f credits (balance %.1f)",
		amount, topUp.CreditsAdded, topUp.NewBalance)
	m.logger.Printf("[survival] bridged %.2f USDC, credits now %.1f", amount, topUp.NewBalance)
}

// runway is credits divided by the tier's burn rate, rounded to one
// decimal. A zero burn rate (dead tier) yields zero, never a division
// by zero.
func (m *Mapper) runway(credits float64, tier domain.SurvivalTier) float64 {
	rate := m.burnRate(tier)
	if rate <= 0 {
		return 0
	}
	return math.Round(credits/rate*10) / 10
}
