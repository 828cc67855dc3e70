// Package monitor runs periodic lifecycle checks over the position
// registry: stale positions are marked dead, graduated pools are
// promoted. Both transitions are one-way and idempotent.
package monitor

import (
	"context"
	"log"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// ActivitySource reports observed 24h trading volume for a mint.
type ActivitySource interface {
	Volume24h(ctx context.Context, mint string) (float64, error)
}

// GraduationSource reports whether a pool has crossed the external
// graduation threshold.
type GraduationSource interface {
	Graduated(ctx context.Context, poolRef string) (bool, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Config for the Monitor.
type Config struct {
	// StalenessWindow is how long a position may show zero volume
	// before it is considered dead.
	StalenessWindow time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		StalenessWindow: 24 * time.Hour,
	}
}

// Monitor applies lifecycle transitions to active positions.
type Monitor struct {
	positions  storage.PositionStore
	activity   ActivitySource
	graduation GraduationSource
	config     Config
	clock      Clock
	logger     *log.Logger
}

// Options for creating a Monitor.
type Options struct {
	Positions  storage.PositionStore
	Activity   ActivitySource
	Graduation GraduationSource // nil disables graduation checks
	Config     Config
	Clock      Clock
	Logger     *log.Logger
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	cfg := opts.Config
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = DefaultConfig().StalenessWindow
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		positions:  opts.Positions,
		activity:   opts.Activity,
		graduation: opts.Graduation,
		config:     cfg,
		clock:      clock,
		logger:     logger,
	}
}

// Report summarizes one monitoring pass.
type Report struct {
	Checked    int
	MarkedDead []string
	Graduated  []string
	Errors     []string
}

// Run checks every active position once. A failing lookup skips that
// position and is reported in the result; it never aborts the pass.
func (m *Monitor) Run(ctx context.Context) (*Report, error) {
	active, err := m.positions.GetByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().UnixMilli()
	report := &Report{Checked: len(active)}

	for _, p := range active {
		if m.checkGraduation(ctx, p, report) {
			continue
		}
		m.checkStaleness(ctx, p, now, report)
	}

	if len(report.MarkedDead) > 0 || len(report.Graduated) > 0 {
		m.logger.Printf("[monitor] checked=%d dead=%d graduated=%d",
			report.Checked, len(report.MarkedDead), len(report.Graduated))
	}

	return report, nil
}

// checkGraduation promotes the position if its pool crossed the
// threshold. Returns true when the position left the active set.
func (m *Monitor) checkGraduation(ctx context.Context, p *domain.Position, report *Report) bool {
	if m.graduation == nil || p.Pool == nil {
		return false
	}

	graduated, err := m.graduation.Graduated(ctx, *p.Pool)
	if err != nil {
		m.logger.Printf("[monitor] graduation check failed for %s: %v", p.Mint, err)
		report.Errors = append(report.Errors, p.Mint+": "+err.Error())
		return false
	}
	if !graduated {
		return false
	}

	if err := m.positions.UpdateStatus(ctx, p.Mint, domain.StatusGraduated); err != nil {
		m.logger.Printf("[monitor] graduate %s: %v", p.Mint, err)
		report.Errors = append(report.Errors, p.Mint+": "+err.Error())
		return false
	}
	report.Graduated = append(report.Graduated, p.Mint)
	return true
}

// checkStaleness marks the position dead when it shows exactly zero
// volume and its age exceeds the staleness window.
func (m *Monitor) checkStaleness(ctx context.Context, p *domain.Position, nowMs int64, report *Report) {
	volume, err := m.activity.Volume24h(ctx, p.Mint)
	if err != nil {
		m.logger.Printf("[monitor] volume lookup failed for %s: %v", p.Mint, err)
		report.Errors = append(report.Errors, p.Mint+": "+err.Error())
		return
	}

	age := time.Duration(nowMs-p.CreatedAt) * time.Millisecond
	if volume != 0 || age <= m.config.StalenessWindow {
		return
	}

	if err := m.positions.UpdateStatus(ctx, p.Mint, domain.StatusDead); err != nil {
		m.logger.Printf("[monitor] mark dead %s: %v", p.Mint, err)
		report.Errors = append(report.Errors, p.Mint+": "+err.Error())
		return
	}
	report.MarkedDead = append(report.MarkedDead, p.Mint)
}
