package domain

// SurvivalTier is the discrete operating mode derived from compute-credit
// runway. Tier names are user-facing and match the agent's status output.
type SurvivalTier string

const (
	TierNormal     SurvivalTier = "normal"
	TierLowCompute SurvivalTier = "low_compute"
	TierCritical   SurvivalTier = "critical"
	TierDead       SurvivalTier = "dead"
)

// SurvivalStatus is the outcome of one survival check.
type SurvivalStatus struct {
	Tier           SurvivalTier
	ComputeCredits float64
	RunwayHours    float64 // credits / tier burn rate, one decimal
	Action         string  // recommended action, includes bridge outcome
	BridgedUSDC    float64 // attempted bridge amount, 0 if none
}
