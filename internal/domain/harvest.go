package domain

// Harvest stream identifiers for HarvestEvent records.
const (
	StreamPool    = "POOL"    // liquidity pool fee collection
	StreamCreator = "CREATOR" // creator fee distribution
)

// PositionHarvest is the per-position breakdown of a harvest run.
// A failed stream contributes zero and records its error text; the
// position still appears in the breakdown with the other stream's value.
type PositionHarvest struct {
	Mint          string
	PoolFeesSOL   float64
	CreatorFeeSOL float64
	References    []string // confirmed external reference ids
	PoolErr       string   // non-empty if the pool fee query failed
	CreatorErr    string   // non-empty if the creator fee query failed
}

// TotalSOL is the combined fee income for the position.
func (p *PositionHarvest) TotalSOL() float64 {
	return p.PoolFeesSOL + p.CreatorFeeSOL
}

// Failed reports whether either fee stream failed for this position.
func (p *PositionHarvest) Failed() bool {
	return p.PoolErr != "" || p.CreatorErr != ""
}

// HarvestResult aggregates one harvest run across the in-scope positions.
type HarvestResult struct {
	TotalSOL    float64
	Positions   []PositionHarvest
	References  []string // union of confirmed reference ids
	HarvestedAt int64    // Unix timestamp in milliseconds
}

// HarvestEvent is one confirmed fee collection, kept as an append-only
// analytical log. Corresponds to harvest_events table in ClickHouse.
type HarvestEvent struct {
	EventID     string // deterministic hash, see idhash
	Mint        string
	Stream      string // POOL | CREATOR
	AmountSOL   float64
	Reference   string // transaction signature
	HarvestedAt int64  // Unix timestamp in milliseconds
}
