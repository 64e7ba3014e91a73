package domain

import (
	"fmt"

	"nemt/internal/domain/models"
)

// ComputeMiles returns end - start, rejecting a backwards odometer.
func ComputeMiles(start, end int64) (int64, error) {
	if start < 0 || end < 0 {
		return 0, ValidationError{Field: "odometer", Msg: "odometer readings must not be negative"}
	}
	if end < start {
		return 0, InvalidMileageError{Start: start, End: end}
	}
	return end - start, nil
}

// ReconcileOdometers checks a report's readings against what was recorded
// during the trip: start may not precede the trip start or the vehicle
// odometer, and end must equal the final stop's reading when one exists.
// stops must be sorted by stop order.
func ReconcileOdometers(trip models.Trip, stops []models.TripStop, vehicleOdometer, start, end int64) error {
	if trip.StartOdometer != nil && start < *trip.StartOdometer {
		return InvalidMileageError{Start: start, End: end, Msg: fmt.Sprintf("start odometer is below the trip start odometer %d", *trip.StartOdometer)}
	}
	if start < vehicleOdometer {
		return InvalidMileageError{Start: start, End: end, Msg: fmt.Sprintf("start odometer is below the vehicle odometer %d", vehicleOdometer)}
	}
	if n := len(stops); n > 0 && stops[n-1].OdometerReading != nil {
		if final := *stops[n-1].OdometerReading; end != final {
			return InvalidMileageError{Start: start, End: end, Msg: fmt.Sprintf("end odometer does not match the final stop reading %d", final)}
		}
	}
	return nil
}
