package utils

import "strings"

// Procedure codes billed for NEMT trips.
const (
	ProcedureAmbulatory = "A0100"
	ProcedureWheelchair = "A0130"
	ProcedureStretcher  = "T2005"
	ProcedureMileage    = "S0215"
)

// RateTable holds base rates per procedure code and the per-mile rate, in cents.
type RateTable struct {
	Base        map[string]int64
	MileageRate int64
}

// DefaultRates returns the built-in rate schedule.
func DefaultRates() RateTable {
	return RateTable{
		Base: map[string]int64{
			ProcedureAmbulatory: 2500,
			ProcedureWheelchair: 4500,
			ProcedureStretcher:  9500,
		},
		MileageRate: 250,
	}
}

// ProcedureForMobility picks the procedure code for a mobility requirement.
// An explicit override wins.
func ProcedureForMobility(mobility, override string) string {
	if o := strings.ToUpper(strings.TrimSpace(override)); o != "" {
		return o
	}
	switch strings.ToUpper(strings.TrimSpace(mobility)) {
	case "WHEELCHAIR":
		return ProcedureWheelchair
	case "STRETCHER":
		return ProcedureStretcher
	default:
		return ProcedureAmbulatory
	}
}

// IsBaseProcedure reports whether code is one of the billable base procedures.
func IsBaseProcedure(code string) bool {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case ProcedureAmbulatory, ProcedureWheelchair, ProcedureStretcher:
		return true
	}
	return false
}

// Resolve returns the procedure code the table actually bills: the code itself
// when it has a base rate, the ambulatory code otherwise.
func (r RateTable) Resolve(procedure string) string {
	code := strings.ToUpper(strings.TrimSpace(procedure))
	if _, ok := r.Base[code]; ok {
		return code
	}
	return ProcedureAmbulatory
}

// ComputeFare returns base and mileage amounts in cents for a procedure and distance.
// Unknown procedure codes fall back to the ambulatory base rate.
func (r RateTable) ComputeFare(procedure string, miles int64) (base, mileage int64) {
	base = r.Base[r.Resolve(procedure)]
	if miles < 0 {
		miles = 0
	}
	return base, miles * r.MileageRate
}
