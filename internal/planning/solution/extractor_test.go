package solution

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/cohort"
	"github.com/pinggolf/breadplan/internal/planning/domain"
)

func emptyIndexes() *cohort.Indexes {
	return &cohort.Indexes{
		Frozen:         make(map[domain.CohortKey]map[domain.Date]bool),
		Ambient:        make(map[domain.CohortKey]map[domain.Date]bool),
		Shipment:       make(map[cohort.ShipmentKey]map[domain.Date]bool),
		Demand:         make(map[domain.DemandKey]bool),
		FreezeThaw:     make(map[domain.CohortKey]map[domain.Date]bool),
		MinTransitDays: make(map[string]int),
	}
}

func TestValuesGetFiltersSolverNoise(t *testing.T) {
	v := Values{
		"clean":     42.5,
		"noise_pos": 0.005,
		"noise_neg": -0.005,
		"missing":   0,
	}
	if got := v.get("clean"); got != 42.5 {
		t.Errorf("get(clean) = %v, want 42.5", got)
	}
	if got := v.get("noise_pos"); got != 0 {
		t.Errorf("get(noise_pos) = %v, want 0 (below tolerance)", got)
	}
	if got := v.get("noise_neg"); got != 0 {
		t.Errorf("get(noise_neg) = %v, want 0 (below tolerance)", got)
	}
	if got := v.get("nonexistent"); got != 0 {
		t.Errorf("get(nonexistent) = %v, want 0", got)
	}
}

func TestParseLPValueHandlesCBCAndBareFormats(t *testing.T) {
	tests := []struct {
		name      string
		fields    []string
		wantName  string
		wantValue float64
		wantOK    bool
	}{
		{"cbc indexed row", []string{"3", "production[plant,rye,2026-01-05]", "120.5", "0"}, "production[plant,rye,2026-01-05]", 120.5, true},
		{"bare name/value", []string{"production[plant,rye,2026-01-05]", "120.5"}, "production[plant,rye,2026-01-05]", 120.5, true},
		{"too short", []string{"onlyone"}, "", 0, false},
		{"non-numeric value", []string{"x", "not-a-number"}, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value, ok := ParseLPValue(tt.fields)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if name != tt.wantName || value != tt.wantValue {
				t.Errorf("got (%q, %v), want (%q, %v)", name, value, tt.wantName, tt.wantValue)
			}
		})
	}
}

func TestDemandLineFulfilled(t *testing.T) {
	if !(DemandLine{Shortage: 0}).Fulfilled() {
		t.Error("zero shortage should be fulfilled")
	}
	if !(DemandLine{Shortage: Tolerance}).Fulfilled() {
		t.Error("shortage at tolerance should be fulfilled")
	}
	if (DemandLine{Shortage: 1}).Fulfilled() {
		t.Error("a full unit of shortage should not be fulfilled")
	}
}

func TestDiagnosticsAndFillRate(t *testing.T) {
	sol := &Solution{
		Demand: []DemandLine{
			{Location: "breadroom_a", Product: "rye", Date: domain.MustParseDate("2026-01-05"), Demand: 100, Shortage: 20},
			{Location: "breadroom_b", Product: "rye", Date: domain.MustParseDate("2026-01-05"), Demand: 50, Shortage: 0},
		},
	}

	diag := sol.Diagnostics()
	if diag.TotalDemand != 150 {
		t.Errorf("TotalDemand = %v, want 150", diag.TotalDemand)
	}
	if diag.TotalShortage != 20 {
		t.Errorf("TotalShortage = %v, want 20", diag.TotalShortage)
	}
	if diag.UnfulfilledCount != 1 {
		t.Errorf("UnfulfilledCount = %d, want 1", diag.UnfulfilledCount)
	}
	if diag.ShortageByLocation["breadroom_a"] != 20 {
		t.Errorf("ShortageByLocation[breadroom_a] = %v, want 20", diag.ShortageByLocation["breadroom_a"])
	}

	if got, want := diag.FillRate(), 1-20.0/150.0; got != want {
		t.Errorf("FillRate() = %v, want %v", got, want)
	}
}

func TestFillRateWithNoDemandIsFull(t *testing.T) {
	diag := DemandDiagnostics{}
	if got := diag.FillRate(); got != 1 {
		t.Errorf("FillRate() with no demand = %v, want 1", got)
	}
}

func TestExtractBuildsProductionAndDemandLines(t *testing.T) {
	locations := []domain.Location{
		{ID: "plant", Type: domain.LocationManufacturing, Storage: domain.StorageBoth},
	}
	horizon := domain.DateRange{Start: domain.MustParseDate("2026-01-01"), End: domain.MustParseDate("2026-01-01")}
	d := horizon.Start

	vals := Values{
		"production[plant,rye,2026-01-01]": 100,
		"shortage[breadroom,rye,2026-01-01]": 5,
	}
	demand := map[domain.DemandKey]float64{
		{Location: "breadroom", Product: "rye", Date: d}: 30,
	}

	sol := Extract(vals, emptyIndexes(), nil, []string{"rye"}, locations, horizon, nil, demand, domain.CostStructure{ProductionCostPerUnit: 2, ShortagePenaltyPerUnit: 10}, 0)

	if len(sol.Production) != 1 || sol.Production[0].Units != 100 {
		t.Fatalf("Production = %+v, want one 100-unit batch", sol.Production)
	}
	if sol.Costs.Production != 200 {
		t.Errorf("Costs.Production = %v, want 200", sol.Costs.Production)
	}
	if len(sol.Demand) != 1 || sol.Demand[0].Shortage != 5 {
		t.Fatalf("Demand = %+v, want one line with shortage 5", sol.Demand)
	}
	if sol.Costs.Shortage != 50 {
		t.Errorf("Costs.Shortage = %v, want 50", sol.Costs.Shortage)
	}
}
