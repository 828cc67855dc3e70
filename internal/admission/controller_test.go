package admission

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
	"solana-launch-agent/internal/storage/memory"
)

// fakeLedger implements LedgerBook with a fixed balance and recorded spends.
type fakeLedger struct {
	sol      float64
	spends   []float64
	stateErr error
}

func (f *fakeLedger) CurrentState(context.Context) (*domain.TreasurySnapshot, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return &domain.TreasurySnapshot{SOLBalance: f.sol}, nil
}

func (f *fakeLedger) RecordSpend(_ context.Context, amount float64) error {
	f.spends = append(f.spends, amount)
	return nil
}

func (f *fakeLedger) totalSpent() float64 {
	total := 0.0
	for _, s := range f.spends {
		total += s
	}
	return total
}

// fakeDeployer implements Deployer, returning a canned result or error.
type fakeDeployer struct {
	calls int
	err   error
}

func (f *fakeDeployer) Deploy(_ context.Context, req *domain.DeployRequest) (*domain.DeployResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	pool := "pool_" + req.Ticker
	return &domain.DeployResult{
		Mint:           "mint_" + req.Ticker,
		Supply:         1_000_000_000,
		RetainedAmount: 50_000_000,
		Pool:           &pool,
		Reference:      "sig_" + req.Ticker,
	}, nil
}

// fixedClock implements Clock at a settable instant.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type testEnv struct {
	controller *Controller
	positions  *memory.PositionStore
	treasury   *memory.TreasuryStore
	ledger     *fakeLedger
	deployer   *fakeDeployer
	clock      *fixedClock
}

func newTestEnv(t *testing.T, cfg Config, balance float64) *testEnv {
	t.Helper()

	env := &testEnv{
		positions: memory.NewPositionStore(),
		treasury:  memory.NewTreasuryStore(),
		ledger:    &fakeLedger{sol: balance},
		deployer:  &fakeDeployer{},
		clock:     &fixedClock{now: time.UnixMilli(1704067200000)},
	}
	env.controller = New(Options{
		Config:    cfg,
		Positions: env.positions,
		Treasury:  env.treasury,
		Ledger:    env.ledger,
		Deployers: map[domain.DeployMethod]Deployer{domain.MethodBondingCurve: env.deployer},
		Clock:     env.clock,
	})
	return env
}

func testConfig() Config {
	return Config{
		MaxActivePositions: 3,
		SurvivalReserveSOL: 0.5,
		Cooldown:           30 * time.Minute,
		OverheadBufferSOL:  0, // exact-boundary tests
		DefaultMethod:      domain.MethodBondingCurve,
	}
}

func testRequest(ticker string, buySOL float64) *domain.DeployRequest {
	return &domain.DeployRequest{
		Name:          "Token " + ticker,
		Ticker:        ticker,
		InitialBuySOL: buySOL,
	}
}

func TestRequestDeployment_Accepted(t *testing.T) {
	env := newTestEnv(t, testConfig(), 2.0)
	ctx := context.Background()

	d, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("RequestDeployment failed: %v", err)
	}
	if !d.Accepted {
		t.Fatalf("Expected acceptance, got rejection: %s", d.Message)
	}
	if d.Result.Mint != "mint_AAA" {
		t.Errorf("Mint: got %s", d.Result.Mint)
	}

	// Position registered as active
	p, err := env.positions.GetByMint(ctx, "mint_AAA")
	if err != nil {
		t.Fatalf("Position not registered: %v", err)
	}
	if p.Status != domain.StatusActive {
		t.Errorf("Status: got %s, want ACTIVE", p.Status)
	}

	// Cooldown timestamp advanced
	last, err := env.treasury.GetLastDeployment(ctx)
	if err != nil {
		t.Fatalf("Cooldown timestamp not set: %v", err)
	}
	if last != env.clock.now.UnixMilli() {
		t.Errorf("Cooldown timestamp: got %d, want %d", last, env.clock.now.UnixMilli())
	}

	// Spend recorded
	if env.ledger.totalSpent() != 1.0 {
		t.Errorf("Recorded spend: got %f, want 1.0", env.ledger.totalSpent())
	}
}

func TestRequestDeployment_ConcurrencyGate(t *testing.T) {
	cfg := testConfig()
	cfg.MaxActivePositions = 1
	env := newTestEnv(t, cfg, 100.0)
	ctx := context.Background()

	if err := env.positions.Insert(ctx, &domain.Position{
		Mint:   "existing",
		Status: domain.StatusActive,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	d, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("RequestDeployment failed: %v", err)
	}
	if d.Accepted {
		t.Fatal("Expected concurrency rejection")
	}
	if d.Reason != ReasonConcurrency {
		t.Errorf("Reason: got %s, want %s", d.Reason, ReasonConcurrency)
	}

	// No side effects
	if env.deployer.calls != 0 {
		t.Error("Deployer called despite rejection")
	}
	if len(env.ledger.spends) != 0 {
		t.Error("Spend recorded despite rejection")
	}
	if _, err := env.treasury.GetLastDeployment(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Error("Cooldown timestamp set despite rejection")
	}
}

func TestRequestDeployment_ConcurrencyIgnoresTerminal(t *testing.T) {
	cfg := testConfig()
	cfg.MaxActivePositions = 1
	env := newTestEnv(t, cfg, 100.0)
	ctx := context.Background()

	// Dead and graduated positions do not count toward the limit
	for _, p := range []*domain.Position{
		{Mint: "dead1", Status: domain.StatusDead},
		{Mint: "grad1", Status: domain.StatusGraduated},
	} {
		if err := env.positions.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	d, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("RequestDeployment failed: %v", err)
	}
	if !d.Accepted {
		t.Errorf("Expected acceptance, got: %s", d.Message)
	}
}

func TestRequestDeployment_SolvencyGate(t *testing.T) {
	tests := []struct {
		name       string
		balance    float64
		cost       float64
		wantAccept bool
	}{
		{"well above reserve", 2.0, 1.0, true},
		{"exactly at reserve boundary", 1.5, 1.0, true}, // B - C == R must succeed
		{"just below reserve", 1.49, 1.0, false},
		{"cost exceeds balance", 0.8, 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), tt.balance)

			d, err := env.controller.RequestDeployment(context.Background(), testRequest("AAA", tt.cost))
			if err != nil {
				t.Fatalf("RequestDeployment failed: %v", err)
			}
			if d.Accepted != tt.wantAccept {
				t.Fatalf("Accepted: got %v, want %v (%s)", d.Accepted, tt.wantAccept, d.Message)
			}
			if !tt.wantAccept {
				if d.Reason != ReasonSolvency {
					t.Errorf("Reason: got %s, want %s", d.Reason, ReasonSolvency)
				}
				wantShortfall := 0.5 - (tt.balance - tt.cost)
				if diff := d.ShortfallSOL - wantShortfall; diff > 1e-9 || diff < -1e-9 {
					t.Errorf("Shortfall: got %f, want %f", d.ShortfallSOL, wantShortfall)
				}
			}
		})
	}
}

func TestRequestDeployment_CooldownGate(t *testing.T) {
	env := newTestEnv(t, testConfig(), 100.0)
	ctx := context.Background()

	// 10 minutes after a previous deployment, 30 minute cooldown
	last := env.clock.now.Add(-10 * time.Minute).UnixMilli()
	if err := env.treasury.SetLastDeployment(ctx, last); err != nil {
		t.Fatalf("SetLastDeployment failed: %v", err)
	}

	d, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("RequestDeployment failed: %v", err)
	}
	if d.Accepted {
		t.Fatal("Expected cooldown rejection")
	}
	if d.Reason != ReasonCooldown {
		t.Errorf("Reason: got %s, want %s", d.Reason, ReasonCooldown)
	}
	if d.WaitMinutes != 20 {
		t.Errorf("WaitMinutes: got %d, want 20", d.WaitMinutes)
	}

	// Registry unchanged
	all, _ := env.positions.GetAll(ctx)
	if len(all) != 0 {
		t.Error("Position appeared despite cooldown rejection")
	}
}

func TestRequestDeployment_CooldownRoundsUp(t *testing.T) {
	env := newTestEnv(t, testConfig(), 100.0)
	ctx := context.Background()

	// 29m30s remaining rounds up to 30
	last := env.clock.now.Add(-30 * time.Second).UnixMilli()
	if err := env.treasury.SetLastDeployment(ctx, last); err != nil {
		t.Fatalf("SetLastDeployment failed: %v", err)
	}

	d, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("RequestDeployment failed: %v", err)
	}
	if d.WaitMinutes != 30 {
		t.Errorf("WaitMinutes: got %d, want 30", d.WaitMinutes)
	}
}

func TestRequestDeployment_CooldownElapsed(t *testing.T) {
	env := newTestEnv(t, testConfig(), 100.0)
	ctx := context.Background()

	last := env.clock.now.Add(-31 * time.Minute).UnixMilli()
	if err := env.treasury.SetLastDeployment(ctx, last); err != nil {
		t.Fatalf("SetLastDeployment failed: %v", err)
	}

	d, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("RequestDeployment failed: %v", err)
	}
	if !d.Accepted {
		t.Errorf("Expected acceptance after cooldown elapsed, got: %s", d.Message)
	}
}

func TestRequestDeployment_DeployerFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t, testConfig(), 100.0)
	env.deployer.err = errors.New("bonding curve initialization reverted")
	ctx := context.Background()

	_, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err == nil {
		t.Fatal("Expected deployer failure to propagate")
	}
	if !strings.Contains(err.Error(), "bonding curve initialization reverted") {
		t.Errorf("Failure reason not surfaced verbatim: %v", err)
	}

	// All state unchanged
	all, _ := env.positions.GetAll(ctx)
	if len(all) != 0 {
		t.Error("Position registered despite deployer failure")
	}
	if len(env.ledger.spends) != 0 {
		t.Error("Spend recorded despite deployer failure")
	}
	if _, err := env.treasury.GetLastDeployment(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Error("Cooldown advanced despite deployer failure")
	}

	// Not retried automatically
	if env.deployer.calls != 1 {
		t.Errorf("Deployer calls: got %d, want 1", env.deployer.calls)
	}
}

func TestRequestDeployment_UnknownMethod(t *testing.T) {
	env := newTestEnv(t, testConfig(), 100.0)

	req := testRequest("AAA", 1.0)
	req.Method = "MYSTERY"
	if _, err := env.controller.RequestDeployment(context.Background(), req); err == nil {
		t.Error("Expected error for unknown method")
	}
}

// End-to-end scenario from the admission contract: a deploy of cost 1.0
// against balance 2.0 and reserve 0.5 is accepted, and an immediate
// second request is rejected for cooldown.
func TestRequestDeployment_SequentialScenario(t *testing.T) {
	env := newTestEnv(t, testConfig(), 2.0)
	ctx := context.Background()

	first, err := env.controller.RequestDeployment(ctx, testRequest("AAA", 1.0))
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	if !first.Accepted {
		t.Fatalf("First request rejected: %s", first.Message)
	}

	// Balance reflects the spend for the next attempt
	env.ledger.sol = 2.0 - 1.0

	second, err := env.controller.RequestDeployment(ctx, testRequest("BBB", 0.4))
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if second.Accepted {
		t.Fatal("Second immediate request should be rejected")
	}
	if second.Reason != ReasonCooldown {
		t.Errorf("Reason: got %s, want %s", second.Reason, ReasonCooldown)
	}
}
