package domain

// DemandKey identifies a single demand point: a destination/product/date
// triple.
type DemandKey struct {
	Location string
	Product  string
	Date     Date
}

// Forecast is the flat sequence of (destination, product, date, quantity)
// tuples consumed from the external forecast collaborator (§6). Quantities
// are in units, not cases.
type Forecast struct {
	Entries []ForecastEntry
}

// ForecastEntry is one forecast row.
type ForecastEntry struct {
	Destination string
	Product     string
	Date        Date
	Quantity    float64
}

// Demand reduces the forecast to a map keyed by demand point, filtered to
// the given horizon. Entries outside the horizon are dropped; duplicate
// entries for the same key are summed.
func (f Forecast) Demand(horizon DateRange) map[DemandKey]float64 {
	out := make(map[DemandKey]float64)
	for _, e := range f.Entries {
		if !horizon.Contains(e.Date) {
			continue
		}
		key := DemandKey{Location: e.Destination, Product: e.Product, Date: e.Date}
		out[key] += e.Quantity
	}
	return out
}
