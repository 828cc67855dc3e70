package domain

// DeployMethod identifies how a position's token was launched.
type DeployMethod string

const (
	MethodBondingCurve DeployMethod = "BONDING_CURVE" // pump.fun style launch
	MethodDirectMint   DeployMethod = "DIRECT_MINT"   // plain SPL mint + pool
	MethodUtility      DeployMethod = "UTILITY"       // utility token, no trading pool
)

// ValidMethod reports whether m is a known deployment method.
func ValidMethod(m DeployMethod) bool {
	switch m {
	case MethodBondingCurve, MethodDirectMint, MethodUtility:
		return true
	}
	return false
}

// PositionStatus is the lifecycle state of a deployed position.
// ACTIVE -> DEAD (staleness) and ACTIVE -> GRADUATED (pool threshold)
// are the only transitions; DEAD and GRADUATED are terminal.
type PositionStatus string

const (
	StatusActive    PositionStatus = "ACTIVE"
	StatusDead      PositionStatus = "DEAD"
	StatusGraduated PositionStatus = "GRADUATED"
)

// Position represents one deployed asset tracked by the agent.
// Corresponds to positions table in PostgreSQL.
type Position struct {
	Mint           string       // PRIMARY KEY, token mint address, immutable
	Name           string       // display name
	Ticker         string       // token symbol
	Method         DeployMethod // how the token was launched
	CreatedAt      int64        // deployment timestamp (ms)
	InitialSupply  float64      // minted supply at launch
	RetainedSupply float64      // supply kept by the agent wallet
	Pool           *string      // liquidity pool address (nullable)
	FeesEarnedSOL  float64      // cumulative harvested fees
	Status         PositionStatus
	UpdatedAt      int64 // last mutation timestamp (ms)
}

// Terminal reports whether the position no longer accrues fees.
func (p *Position) Terminal() bool {
	return p.Status == StatusDead || p.Status == StatusGraduated
}
