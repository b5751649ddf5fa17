package domain

// DepartureType classifies when a truck leaves the manufacturing storage
// node relative to the day's production.
type DepartureType string

const (
	DepartureMorning   DepartureType = "morning"
	DepartureAfternoon DepartureType = "afternoon"
)

// Truck is one scheduled truck instance. Morning trucks may only load
// production from the day before departure; afternoon trucks may load
// previous-day or same-day production (§3 Truck schedule).
type Truck struct {
	ID                string
	Destination       string
	IntermediateStops []string
	DaysOfWeek        map[int]bool // 0=Sunday .. 6=Saturday; nil/empty means every day
	Departure         DepartureType
	UnitCapacity      float64
	PalletCapacity    int
	FixedCost         float64
	CostPerUnit       float64
}

// UnitsPerPallet is the fixed pallet size used for the integrality
// constraint (§4.5 item 16).
const UnitsPerPallet = 320

// AppliesOn reports whether the truck is scheduled to depart on the given
// weekday.
func (t Truck) AppliesOn(weekday int) bool {
	if len(t.DaysOfWeek) == 0 {
		return true
	}
	return t.DaysOfWeek[weekday]
}

// Stops returns the full list of stops the truck makes, in order, ending at
// Destination. A truck with no intermediate stops serves only Destination.
func (t Truck) Stops() []string {
	if len(t.IntermediateStops) == 0 {
		return []string{t.Destination}
	}
	stops := make([]string, 0, len(t.IntermediateStops)+1)
	stops = append(stops, t.IntermediateStops...)
	stops = append(stops, t.Destination)
	return stops
}
