package domain

import (
	"fmt"
	"sort"

	"nemt/internal/domain/models"
)

// SortStops orders stops by stop_order in place.
func SortStops(stops []models.TripStop) {
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].StopOrder < stops[j].StopOrder })
}

// ValidateStopPlan checks a stop list at trip creation. Orders left at zero are
// assigned 1..N in the given sequence; supplied orders must form exactly 1..N.
func ValidateStopPlan(stops []models.TripStop) ([]models.TripStop, error) {
	if len(stops) < 2 {
		return nil, ValidationError{Field: "stops", Msg: "at least a pickup and a dropoff stop are required"}
	}
	out := make([]models.TripStop, len(stops))
	copy(out, stops)

	allZero := true
	for _, s := range out {
		if s.StopOrder != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		for i := range out {
			out[i].StopOrder = i + 1
		}
	}
	SortStops(out)
	for i, s := range out {
		if s.StopOrder != i+1 {
			return nil, ValidationError{Field: "stops", Msg: fmt.Sprintf("stop orders must be unique and run 1..%d", len(out))}
		}
		if s.StopType != models.StopPickup && s.StopType != models.StopDropoff {
			return nil, ValidationError{Field: "stops", Msg: fmt.Sprintf("stop %d has unknown type %q", s.StopOrder, s.StopType)}
		}
		if s.Address == "" {
			return nil, ValidationError{Field: "stops", Msg: fmt.Sprintf("stop %d address is required", s.StopOrder)}
		}
	}
	if out[0].StopType != models.StopPickup {
		return nil, ValidationError{Field: "stops", Msg: "first stop must be a PICKUP"}
	}
	if out[len(out)-1].StopType != models.StopDropoff {
		return nil, ValidationError{Field: "stops", Msg: "final stop must be a DROPOFF"}
	}
	return out, nil
}

func findStop(stops []models.TripStop, stopID int64) (int, error) {
	for i, s := range stops {
		if s.ID == stopID {
			return i, nil
		}
	}
	return -1, NotFoundError{Resource: "trip stop"}
}

// CheckArrive returns the index of the stop to mark arrived. Stops must already
// be sorted. Arrival is legal only for the lowest-order stop that has not yet
// arrived, and only once every earlier stop has been departed.
func CheckArrive(trip models.Trip, stops []models.TripStop, stopID int64) (int, error) {
	if err := CanOperate(trip, TransitionStopArrive); err != nil {
		return -1, err
	}
	idx, err := findStop(stops, stopID)
	if err != nil {
		return -1, err
	}
	if stops[idx].Arrived() {
		return -1, invalid(trip, TransitionStopArrive, fmt.Sprintf("stop %d already arrived", stops[idx].StopOrder))
	}
	for _, prev := range stops[:idx] {
		if !prev.Completed() {
			return -1, invalid(trip, TransitionStopArrive, fmt.Sprintf("stop %d must be completed before arriving at stop %d", prev.StopOrder, stops[idx].StopOrder))
		}
	}
	return idx, nil
}

// CheckComplete returns the index of the stop to mark departed. The final stop
// needs an odometer reading no lower than the trip's start odometer.
func CheckComplete(trip models.Trip, stops []models.TripStop, stopID int64, odometer *int64) (int, error) {
	if err := CanOperate(trip, TransitionStopComplete); err != nil {
		return -1, err
	}
	idx, err := findStop(stops, stopID)
	if err != nil {
		return -1, err
	}
	stop := stops[idx]
	for _, prev := range stops[:idx] {
		if !prev.Completed() {
			return -1, invalid(trip, TransitionStopComplete, fmt.Sprintf("stop %d must be completed before stop %d", prev.StopOrder, stop.StopOrder))
		}
	}
	if stop.Completed() {
		return -1, invalid(trip, TransitionStopComplete, fmt.Sprintf("stop %d already completed", stop.StopOrder))
	}
	if !stop.Arrived() {
		return -1, invalid(trip, TransitionStopComplete, fmt.Sprintf("stop %d has not been arrived", stop.StopOrder))
	}
	if idx == len(stops)-1 {
		if odometer == nil {
			return -1, ValidationError{Field: "odometerReading", Msg: "required for the final stop"}
		}
		if trip.StartOdometer != nil && *odometer < *trip.StartOdometer {
			return -1, InvalidMileageError{Start: *trip.StartOdometer, End: *odometer, Msg: "final stop odometer is below trip start odometer"}
		}
	}
	return idx, nil
}

// AllStopsCompleted reports whether every stop has a departure time.
func AllStopsCompleted(stops []models.TripStop) bool {
	if len(stops) == 0 {
		return false
	}
	for _, s := range stops {
		if !s.Completed() {
			return false
		}
	}
	return true
}
