package domain

// CostStructure carries the unit rates used by the objective (§4.5).
type CostStructure struct {
	ProductionCostPerUnit float64

	HoldingCostFrozenPerUnitDay  float64
	HoldingCostAmbientPerUnitDay float64

	FreezeCostPerUnit float64
	ThawCostPerUnit   float64

	ShortagePenaltyPerUnit float64
}

// DefaultCostStructure mirrors the original system's defaults: a 5 cent
// freeze/thaw handling fee and a deliberately large, but finite, shortage
// penalty so the solver always prefers serving demand over leaving it
// unmet, while still producing a bounded, interpretable objective value.
func DefaultCostStructure() CostStructure {
	return CostStructure{
		FreezeCostPerUnit:      0.05,
		ThawCostPerUnit:        0.05,
		ShortagePenaltyPerUnit: 1_000_000,
	}
}
