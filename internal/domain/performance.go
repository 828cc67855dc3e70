package domain

// PerformanceRecord is one entry of the rolling strategy-review history.
// The agent keeps the most recent 30 entries.
type PerformanceRecord struct {
	RecordedAt      int64 // Unix timestamp in milliseconds
	SOLBalance      float64
	USDCBalance     float64
	ComputeCredits  float64
	TotalInvested   float64
	TotalEarned     float64
	NetPnL          float64
	ActivePositions int
	Tier            SurvivalTier
}

// PerformanceHistoryLimit is the number of records retained.
const PerformanceHistoryLimit = 30
