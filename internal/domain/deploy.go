package domain

// DeployRequest describes a requested token launch.
type DeployRequest struct {
	Name        string
	Ticker      string
	Description string
	ImageURI    string       // uploaded metadata image, opaque to the core
	Method      DeployMethod // empty means the configured default

	InitialBuySOL float64 // initial buy on the bonding curve / mint
	LiquiditySOL  float64 // seed for the liquidity pool, 0 if none
}

// CostSOL is the projected on-chain spend excluding the fixed overhead
// buffer, which is a solvency projection rather than an actual transfer.
func (r *DeployRequest) CostSOL() float64 {
	return r.InitialBuySOL + r.LiquiditySOL
}

// DeployResult is returned by a Deployer collaborator on success.
type DeployResult struct {
	Mint           string  // new token mint address
	Supply         float64 // total minted supply
	RetainedAmount float64 // supply retained by the agent wallet
	Pool           *string // liquidity pool address, nil if none
	Reference      string  // transaction signature
}
