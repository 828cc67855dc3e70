// Package main runs the autonomous launch agent as a single service:
// - Portfolio monitor (scheduled): staleness and graduation transitions
// - Fee harvest (scheduled): pool + creator fee collection and payout split
// - Treasury check (scheduled): survival tier evaluation and auto-bridge
// - Strategy review (scheduled): rolling performance history
// - HTTP surface: /deploy, /harvest, /status, /health, /metrics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-launch-agent/internal/admission"
	"solana-launch-agent/internal/agent"
	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/harvest"
	"solana-launch-agent/internal/launchpad"
	"solana-launch-agent/internal/monitor"
	"solana-launch-agent/internal/observability"
	"solana-launch-agent/internal/solana"
	"solana-launch-agent/internal/storage"
	chstore "solana-launch-agent/internal/storage/clickhouse"
	"solana-launch-agent/internal/storage/memory"
	"solana-launch-agent/internal/storage/migrations"
	pgstore "solana-launch-agent/internal/storage/postgres"
	"solana-launch-agent/internal/survival"
	"solana-launch-agent/internal/treasury"
	"solana-launch-agent/internal/wallet"
)

// Server schedules the agent's periodic tasks and serves the HTTP surface.
type Server struct {
	agent   *agent.Agent
	watcher *solana.ActivityWatcher // nil without a WS endpoint
	wallet  string
	logger  *log.Logger

	portfolioInterval time.Duration
	harvestInterval   time.Duration
	treasuryInterval  time.Duration
	reviewInterval    time.Duration

	mu               sync.Mutex
	started          time.Time
	lastPortfolioRun time.Time
	lastHarvestRun   time.Time
	lastTreasuryRun  time.Time
	lastReviewRun    time.Time
	deployments      int
	harvests         int
}

// agentStores holds the storage implementations behind the agent.
type agentStores struct {
	positions   storage.PositionStore
	treasury    storage.TreasuryStore
	events      storage.HarvestEventStore
	performance storage.PerformanceStore
}

func main() {
	// Load .env file if exists, without overriding system env vars.
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional)")
	platformURL := flag.String("platform-url", os.Getenv("PLATFORM_URL"), "Launch platform API base URL")
	platformKey := flag.String("platform-api-key", os.Getenv("PLATFORM_API_KEY"), "Launch platform API key")
	distributor := flag.String("fee-distributor", os.Getenv("FEE_DISTRIBUTOR"), "Platform fee distributor account")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	payoutAddress := flag.String("payout-address", os.Getenv("PAYOUT_ADDRESS"), "Address receiving the payout split (optional)")
	payoutShare := flag.Float64("payout-share", envFloat("PAYOUT_SHARE", 0.5), "Fraction of harvested fees paid out")
	portfolioInterval := flag.Duration("portfolio-interval", 1*time.Hour, "Portfolio check interval")
	harvestInterval := flag.Duration("harvest-interval", 6*time.Hour, "Fee harvest interval")
	treasuryInterval := flag.Duration("treasury-interval", 30*time.Minute, "Treasury check interval")
	reviewInterval := flag.Duration("review-interval", 24*time.Hour, "Strategy review interval")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/status/metrics")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *platformURL == "" {
		logger.Fatal("--platform-url is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// The wallet credential survives restarts in the treasury store.
	keypair, err := wallet.Ensure(ctx, stores.treasury, logger)
	if err != nil {
		logger.Fatalf("Failed to ensure wallet: %v", err)
	}
	logger.Printf("Agent wallet: %s", keypair.Address())

	platform := launchpad.NewClient(launchpad.ClientOptions{
		BaseURL: *platformURL,
		APIKey:  *platformKey,
		Wallet:  keypair.Address(),
	})

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	balances := solana.NewBalanceClient(rpc, solana.USDCMint)

	ledger, err := treasury.NewLedger(ctx, stores.treasury, balances, platform, keypair.Address())
	if err != nil {
		logger.Fatalf("Failed to create ledger: %v", err)
	}

	controller := admission.New(admission.Options{
		Config:    admission.DefaultConfig(),
		Positions: stores.positions,
		Treasury:  stores.treasury,
		Ledger:    ledger,
		Deployers: map[domain.DeployMethod]admission.Deployer{
			domain.MethodBondingCurve: platform,
			domain.MethodDirectMint:   platform,
			domain.MethodUtility:      platform,
		},
		Logger: log.New(os.Stdout, "[admission] ", log.LstdFlags),
	})

	detector := harvest.NewTransferDetector(harvest.DetectorOptions{
		RPC:         rpc,
		Wallet:      keypair.Address(),
		Distributor: *distributor,
	})

	harvester := harvest.New(harvest.Options{
		Positions: stores.positions,
		Pools:     platform,
		Creator:   detector,
		Events:    stores.events,
		Logger:    log.New(os.Stdout, "[harvest] ", log.LstdFlags),
	})

	mapper := survival.NewMapper(survival.DefaultConfig(), platform,
		log.New(os.Stdout, "[survival] ", log.LstdFlags))

	// A WS endpoint enables live activity tracking; without one the
	// monitor falls back to RPC signature scans.
	var watcher *solana.ActivityWatcher
	if *wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil, log.New(os.Stdout, "[ws] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("Failed to create websocket client: %v", err)
		}
		defer ws.Close()

		watcher = solana.NewActivityWatcher(ws, log.New(os.Stdout, "[ws] ", log.LstdFlags))
		defer watcher.Stop()

		if err := watchActivePositions(ctx, stores.positions, watcher); err != nil {
			logger.Fatalf("Failed to subscribe active positions: %v", err)
		}
	}

	mon := monitor.New(monitor.Options{
		Positions:  stores.positions,
		Activity:   monitor.NewChainActivity(rpc, watcher, monitor.DefaultConfig().StalenessWindow),
		Graduation: platform,
		Config:     monitor.DefaultConfig(),
		Logger:     log.New(os.Stdout, "[monitor] ", log.LstdFlags),
	})

	core := agent.New(agent.Options{
		Config: agent.Config{
			PayoutAddress: *payoutAddress,
			PayoutShare:   *payoutShare,
		},
		Admission:   controller,
		Harvester:   harvester,
		Ledger:      ledger,
		Survival:    mapper,
		Monitor:     mon,
		Positions:   stores.positions,
		Performance: stores.performance,
		Payer:       platform,
		Logger:      log.New(os.Stdout, "[agent] ", log.LstdFlags),
	})

	server := &Server{
		agent:             core,
		watcher:           watcher,
		wallet:            keypair.Address(),
		logger:            logger,
		portfolioInterval: *portfolioInterval,
		harvestInterval:   *harvestInterval,
		treasuryInterval:  *treasuryInterval,
		reviewInterval:    *reviewInterval,
		started:           time.Now(),
	}

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*httpAddr)

	server.Run(ctx)
	close(done)

	logger.Println("Shutdown complete")
}

// envFloat reads a float env var, falling back to def when unset or invalid.
func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*agentStores, func(), error) {
	if useMemory {
		stores := &agentStores{
			positions:   memory.NewPositionStore(),
			treasury:    memory.NewTreasuryStore(),
			events:      memory.NewHarvestEventStore(),
			performance: memory.NewPerformanceStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	chConn, err := chstore.Connect(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	stores := &agentStores{
		positions:   pgstore.NewPositionStore(pool),
		treasury:    pgstore.NewTreasuryStore(pool),
		events:      chstore.NewHarvestEventStore(chConn),
		performance: pgstore.NewPerformanceStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// watchActivePositions subscribes the activity watcher to every mint
// that is still active at startup.
func watchActivePositions(ctx context.Context, positions storage.PositionStore, watcher *solana.ActivityWatcher) error {
	active, err := positions.GetByStatus(ctx, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("load active positions: %w", err)
	}
	for _, p := range active {
		if err := watcher.Watch(ctx, p.Mint); err != nil {
			return fmt.Errorf("watch %s: %w", p.Mint, err)
		}
	}
	return nil
}

// Run drives the periodic task loops until the context is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.logger.Println("Starting launch agent...")

	var wg sync.WaitGroup

	s.runLoop(ctx, &wg, "portfolio", s.portfolioInterval, func(ctx context.Context) {
		s.agent.RunPortfolioCheck(ctx)
		s.stamp(&s.lastPortfolioRun)
	})
	s.runLoop(ctx, &wg, "harvest", s.harvestInterval, func(ctx context.Context) {
		s.agent.RunFeeHarvest(ctx)
		s.stamp(&s.lastHarvestRun)
		s.mu.Lock()
		s.harvests++
		s.mu.Unlock()
	})
	s.runLoop(ctx, &wg, "treasury", s.treasuryInterval, func(ctx context.Context) {
		s.agent.RunTreasuryRebalance(ctx)
		s.stamp(&s.lastTreasuryRun)
	})
	s.runLoop(ctx, &wg, "review", s.reviewInterval, func(ctx context.Context) {
		s.agent.RunStrategyReview(ctx)
		s.stamp(&s.lastReviewRun)
	})

	wg.Wait()
}

// runLoop runs fn immediately and then on every tick until cancelled.
func (s *Server) runLoop(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Printf("Starting %s loop (interval: %v)", name, interval)

		fn(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

func (s *Server) stamp(field *time.Time) {
	s.mu.Lock()
	*field = time.Now()
	s.mu.Unlock()
}

// startHTTPServer starts the HTTP server for the agent surface.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/deploy", s.handleDeploy)
	mux.HandleFunc("/harvest", s.handleHarvest)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string          `json:"status"`
	Uptime           string          `json:"uptime"`
	Wallet           string          `json:"wallet"`
	Treasury         *treasuryStatus `json:"treasury,omitempty"`
	SurvivalTier     string          `json:"survival_tier,omitempty"`
	RunwayHours      float64         `json:"runway_hours,omitempty"`
	ActivePositions  int             `json:"active_positions"`
	Deployments      int             `json:"deployments"`
	Harvests         int             `json:"harvests"`
	LastPortfolioRun time.Time       `json:"last_portfolio_run,omitempty"`
	LastHarvestRun   time.Time       `json:"last_harvest_run,omitempty"`
	LastTreasuryRun  time.Time       `json:"last_treasury_run,omitempty"`
	LastReviewRun    time.Time       `json:"last_review_run,omitempty"`
}

type treasuryStatus struct {
	SOLBalance     float64 `json:"sol_balance"`
	USDCBalance    float64 `json:"usdc_balance"`
	ComputeCredits float64 `json:"compute_credits"`
	TotalInvested  float64 `json:"total_invested"`
	TotalEarned    float64 `json:"total_earned"`
	NetPnL         float64 `json:"net_pnl"`
}

// handleStatus returns agent status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	treasuryOut := s.agent.CheckTreasury(r.Context())
	portfolioOut := s.agent.CheckPortfolio(r.Context())

	s.mu.Lock()
	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).String(),
		Wallet:           s.wallet,
		Deployments:      s.deployments,
		Harvests:         s.harvests,
		LastPortfolioRun: s.lastPortfolioRun,
		LastHarvestRun:   s.lastHarvestRun,
		LastTreasuryRun:  s.lastTreasuryRun,
		LastReviewRun:    s.lastReviewRun,
	}
	s.mu.Unlock()

	if treasuryOut.Error == "" && treasuryOut.Snapshot != nil {
		snap := treasuryOut.Snapshot
		resp.Treasury = &treasuryStatus{
			SOLBalance:     snap.SOLBalance,
			USDCBalance:    snap.USDCBalance,
			ComputeCredits: snap.ComputeCredits,
			TotalInvested:  snap.TotalInvested,
			TotalEarned:    snap.TotalEarned,
			NetPnL:         snap.NetPnL(),
		}
		resp.SurvivalTier = string(treasuryOut.Survival.Tier)
		resp.RunwayHours = treasuryOut.Survival.RunwayHours
	}
	if portfolioOut.Error == "" {
		resp.ActivePositions = portfolioOut.Active
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleHistory returns the rolling strategy-review history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	out := s.agent.ReviewHistory(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if out.Error != "" {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(out)
}

// handleDeploy accepts a deployment request and runs it through
// admission control. Rejections return 200 with the decision attached;
// only internal failures return 5xx.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}

	out := s.agent.Deploy(r.Context(), &req)
	if out.Error != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(out)
		return
	}

	if out.Decision != nil && out.Decision.Accepted {
		s.mu.Lock()
		s.deployments++
		s.mu.Unlock()

		if s.watcher != nil {
			if err := s.watcher.Watch(r.Context(), out.Decision.Position.Mint); err != nil {
				s.logger.Printf("Failed to watch new mint %s: %v", out.Decision.Position.Mint, err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleHarvest triggers an immediate harvest run across all active
// positions.
func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	out := s.agent.HarvestFees(r.Context(), harvest.Scope{})
	if out.Error == "" {
		s.mu.Lock()
		s.harvests++
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	if out.Error != "" {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(out)
}
