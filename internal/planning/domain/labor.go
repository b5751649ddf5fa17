package domain

// LaborDay is one calendar date's labor terms.
//
// On a fixed day (ordinary weekday), FixedHours are paid whether or not the
// plant produces (a sunk cost); hours beyond FixedHours up to MaxHours are
// paid at OvertimeRate. On a non-fixed day (weekend/holiday), MinimumHours
// are paid only if the plant actually produces that day, at NonFixedRate.
type LaborDay struct {
	Date        Date
	IsFixedDay  bool
	FixedHours  float64
	RegularRate float64
	Overtime    float64 // overtime rate, $/hour
	MaxHours    float64

	NonFixedRate float64
	MinimumHours float64
}

// LaborCalendar maps every planning date to its labor terms.
type LaborCalendar struct {
	Days map[Date]LaborDay
}

// Get returns the labor day for d and whether it was configured.
func (c LaborCalendar) Get(d Date) (LaborDay, bool) {
	day, ok := c.Days[d]
	return day, ok
}

// ProductionRateUnitsPerHour is the fixed plant throughput used to convert
// production volume into labor hours (§4.5 constraint 2).
const ProductionRateUnitsPerHour = 1400
