package domain

// TreasurySnapshot is a point-in-time view of the agent's holdings.
// Balances are queried live from the chain on every call; only the
// cumulative counters come from the persisted ledger.
type TreasurySnapshot struct {
	SOLBalance     float64 // native asset
	USDCBalance    float64 // stable asset
	ComputeCredits float64 // externally metered compute-credit balance
	TotalInvested  float64 // cumulative confirmed spend
	TotalEarned    float64 // cumulative confirmed fee income
	CapturedAt     int64   // Unix timestamp in milliseconds
}

// NetPnL is always recomputed from the counters, never stored.
func (s *TreasurySnapshot) NetPnL() float64 {
	return s.TotalEarned - s.TotalInvested
}
