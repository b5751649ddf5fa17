package domain

// RouteHop is one segment of a configured Route: the static transit/cost/mode
// attributes of travelling from Stops[i] to Stops[i+1].
type RouteHop struct {
	TransitDays int
	CostPerUnit float64
	Mode        TransportMode
}

// Route is a configured, possibly multi-hop path through the network (for
// example plant -> hub -> breadroom configured as a single route record).
// NetworkGraph decomposes routes into single-hop Legs; Stops has length
// len(Hops)+1.
type Route struct {
	ID    string
	Stops []string
	Hops  []RouteHop
}

// Leg is a single-hop, directed edge in the routing graph: (Origin,
// Destination) plus the attributes needed to cost and time a shipment over
// it. Legs are derived from Routes by NetworkGraph, never configured
// directly.
type Leg struct {
	Origin      string
	Destination string
	TransitDays int
	CostPerUnit float64
	Mode        TransportMode
}

// LegKey is the map/set key for a leg: the (origin, destination) pair. Legs are
// assumed unique per directed pair after decomposition (§3 invariant 6's
// "every leg whose origin is the real manufacturing site is forced to zero
// flow" presumes one leg per pair once the storage-node rewrite has run).
type LegKey struct {
	Origin      string
	Destination string
}

// Key returns the (origin, destination) identity of the leg.
func (l Leg) Key() LegKey {
	return LegKey{Origin: l.Origin, Destination: l.Destination}
}
