package domain

// CohortKey identifies one production cohort: the product produced at a
// given location on a given production date, currently in a given state.
type CohortKey struct {
	Location     string
	Product      string
	ProductionDt Date
	State        ProductState
}

// InventoryEntry is one line of a raw inventory snapshot as supplied by the
// external collaborator. The spec accepts 2-, 3-, and 4-tuple forms:
//
//	(location, product, quantity)                       - 2-tuple
//	(location, product, production_date, quantity)       - 3-tuple
//	(location, product, production_date, state, qty)     - 4-tuple
//
// ProductionDate and State are optional pointers; nil means "infer".
type InventoryEntry struct {
	Location       string
	Product        string
	ProductionDate *Date
	State          *ProductState
	Quantity       float64
}

// InventorySnapshot is the raw, as-supplied starting inventory together with
// the date it was captured.
type InventorySnapshot struct {
	SnapshotDate Date
	Entries      []InventoryEntry
}

// Canonicalize converts a raw snapshot into the internal 4-tuple
// representation (§3 invariant: "the internal representation is always a
// 4-tuple"). Missing production dates are assigned the snapshot date, or
// horizonStart.AddDays(-1) when the snapshot carries no date of its own
// (SnapshotDate is zero). Missing states are inferred from the location's
// dominant storage mode (frozen-only -> Frozen, otherwise -> Ambient).
//
// Negative quantities are rejected with an error carrying the offending
// entry so the caller can report InvalidInventory (§7).
func (s InventorySnapshot) Canonicalize(locations map[string]Location, horizonStart Date) (map[CohortKey]float64, error) {
	out := make(map[CohortKey]float64, len(s.Entries))

	fallbackDate := s.SnapshotDate
	if fallbackDate == 0 {
		fallbackDate = horizonStart.AddDays(-1)
	}

	for _, e := range s.Entries {
		if e.Quantity < 0 {
			return nil, &NegativeInventoryError{Entry: e}
		}

		prodDate := fallbackDate
		if e.ProductionDate != nil {
			prodDate = *e.ProductionDate
		}

		state := StateAmbient
		if e.State != nil {
			state = *e.State
		} else if loc, ok := locations[e.Location]; ok && loc.Storage == StorageFrozenOnly {
			state = StateFrozen
		}

		key := CohortKey{Location: e.Location, Product: e.Product, ProductionDt: prodDate, State: state}
		out[key] += e.Quantity
	}

	return out, nil
}

// NegativeInventoryError reports an inventory entry with negative quantity.
type NegativeInventoryError struct {
	Entry InventoryEntry
}

func (e *NegativeInventoryError) Error() string {
	return "negative inventory quantity for " + e.Entry.Location + "/" + e.Entry.Product
}
