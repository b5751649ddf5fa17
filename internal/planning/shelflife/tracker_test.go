package shelflife

import (
	"testing"

	"github.com/pinggolf/breadplan/internal/planning/domain"
)

func leg(origin, dest string, transitDays int, mode domain.TransportMode) RouteLeg {
	return RouteLeg{Leg: domain.Leg{Origin: origin, Destination: dest, TransitDays: transitDays, Mode: mode}}
}

func TestTrackThroughRouteFrozenStaysFrozen(t *testing.T) {
	legs := []RouteLeg{leg("6122_Storage", "hub", 2, domain.TransportFrozen)}
	snaps, err := TrackThroughRoute(domain.MustParseDate("2026-01-01"), domain.StateFrozen, legs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("len(snaps) = %d, want 1", len(snaps))
	}
	s := snaps[0]
	if s.State != domain.StateFrozen {
		t.Errorf("State = %v, want Frozen", s.State)
	}
	if s.AgeDays != 2 {
		t.Errorf("AgeDays = %d, want 2", s.AgeDays)
	}
	if s.RemainingDays != domain.FrozenShelfLifeDays-2 {
		t.Errorf("RemainingDays = %d, want %d", s.RemainingDays, domain.FrozenShelfLifeDays-2)
	}
}

func TestTrackThroughRouteFrozenAutoThawsOnAmbientLeg(t *testing.T) {
	legs := []RouteLeg{leg("6122_Storage", "breadroom", 3, domain.TransportAmbient)}
	snaps, err := TrackThroughRoute(domain.MustParseDate("2026-01-01"), domain.StateFrozen, legs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := snaps[0]
	if s.State != domain.StateAmbient {
		t.Errorf("State = %v, want Ambient (auto-thaw-in-transit)", s.State)
	}
	if s.HasThawDate {
		t.Error("auto-thaw-in-transit to Ambient should not set a thaw date; it keeps ageing from production date")
	}
}

func TestTrackThroughRouteThawTriggerResetsClock(t *testing.T) {
	legs := []RouteLeg{leg("6122_Storage", "wa_breadroom", 5, domain.TransportFrozen)}
	legs[0].TriggersThaw = true

	prodDate := domain.MustParseDate("2026-01-01")
	snaps, err := TrackThroughRoute(prodDate, domain.StateFrozen, legs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := snaps[0]
	if s.State != domain.StateThawed {
		t.Errorf("State = %v, want Thawed", s.State)
	}
	if !s.HasThawDate || s.ThawDate != prodDate.AddDays(5) {
		t.Errorf("ThawDate = %v (has=%v), want %v", s.ThawDate, s.HasThawDate, prodDate.AddDays(5))
	}
	if s.RemainingDays != domain.ThawedShelfLifeDays {
		t.Errorf("RemainingDays = %d, want %d (full thawed budget, freshly reset)", s.RemainingDays, domain.ThawedShelfLifeDays)
	}
}

func TestTrackThroughRouteMultiHopAgesCumulatively(t *testing.T) {
	legs := []RouteLeg{
		leg("6122_Storage", "hub", 2, domain.TransportFrozen),
		leg("hub", "breadroom", 3, domain.TransportFrozen),
	}
	snaps, err := TrackThroughRoute(domain.MustParseDate("2026-01-01"), domain.StateFrozen, legs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(snaps) = %d, want 2", len(snaps))
	}
	if snaps[1].AgeDays != 5 {
		t.Errorf("final AgeDays = %d, want 5", snaps[1].AgeDays)
	}
}

func TestTrackThroughRouteRejectsEmptyLegs(t *testing.T) {
	if _, err := TrackThroughRoute(domain.MustParseDate("2026-01-01"), domain.StateFrozen, nil); err == nil {
		t.Error("expected an error for an empty leg list")
	}
}

func TestTrackThroughRouteDetectsExpiry(t *testing.T) {
	legs := []RouteLeg{leg("hub", "breadroom", 20, domain.TransportAmbient)}
	snaps, err := TrackThroughRoute(domain.MustParseDate("2026-01-01"), domain.StateAmbient, legs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snaps[0].IsExpired {
		t.Error("a 20-day ambient transit should exceed the 17-day ambient shelf life")
	}
}

func TestValidateBreadroomAcceptance(t *testing.T) {
	tests := []struct {
		name   string
		snap   Snapshot
		wantOK bool
	}{
		{"plenty of margin", Snapshot{RemainingDays: 10}, true},
		{"exactly at minimum", Snapshot{RemainingDays: MinBreadroomShelfLifeDays}, true},
		{"below minimum", Snapshot{RemainingDays: MinBreadroomShelfLifeDays - 1}, false},
		{"expired", Snapshot{RemainingDays: 10, IsExpired: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := ValidateBreadroomAcceptance(tt.snap)
			if ok != tt.wantOK {
				t.Errorf("ValidateBreadroomAcceptance() = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestValidateRouteFeasibilityRejectsTransitExceedingBudget(t *testing.T) {
	legs := []RouteLeg{leg("a", "b", 115, domain.TransportFrozen)}
	ok, reason := ValidateRouteFeasibility(legs, domain.StateFrozen)
	if ok {
		t.Fatal("expected infeasible: 115 transit + 7 margin > 120 day frozen budget")
	}
	if reason == "" {
		t.Error("expected a non-empty infeasibility reason")
	}
}

func TestValidateRouteFeasibilityRejectsAmbientOnFrozenLeg(t *testing.T) {
	legs := []RouteLeg{leg("a", "b", 1, domain.TransportFrozen)}
	ok, _ := ValidateRouteFeasibility(legs, domain.StateAmbient)
	if ok {
		t.Error("ambient product cannot ride a frozen-mode leg")
	}
}

func TestValidateRouteFeasibilityAcceptsAutoThawToAmbient(t *testing.T) {
	legs := []RouteLeg{leg("a", "b", 3, domain.TransportAmbient)}
	ok, reason := ValidateRouteFeasibility(legs, domain.StateFrozen)
	if !ok {
		t.Errorf("expected feasible, got infeasible: %s", reason)
	}
}
