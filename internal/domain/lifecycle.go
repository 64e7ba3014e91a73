package domain

import "nemt/internal/domain/models"

// Transition names a lifecycle operation on a trip.
type Transition string

const (
	TransitionApprove      Transition = "approve"
	TransitionStart        Transition = "start"
	TransitionStopArrive   Transition = "stop-arrive"
	TransitionStopComplete Transition = "stop-complete"
	TransitionSign         Transition = "sign"
	TransitionSubmitReport Transition = "submit-report"
	TransitionComplete     Transition = "complete"
	TransitionCancel       Transition = "cancel"
	TransitionNoShow       Transition = "no-show"
)

func invalid(trip models.Trip, t Transition, precondition string) error {
	return InvalidStateTransition{
		Current:      string(trip.Status),
		Transition:   string(t),
		Precondition: precondition,
	}
}

func requireStatus(trip models.Trip, t Transition, allowed ...models.TripStatus) error {
	for _, s := range allowed {
		if trip.Status == s {
			return nil
		}
	}
	want := ""
	for i, s := range allowed {
		if i > 0 {
			want += " or "
		}
		want += string(s)
	}
	return invalid(trip, t, "status must be "+want)
}

func CanApprove(trip models.Trip) error {
	return requireStatus(trip, TransitionApprove, models.TripPendingApproval)
}

func CanStart(trip models.Trip) error {
	if err := requireStatus(trip, TransitionStart, models.TripScheduled); err != nil {
		return err
	}
	if trip.DriverID == nil || *trip.DriverID <= 0 {
		return invalid(trip, TransitionStart, "driver must be assigned")
	}
	if trip.VehicleID == nil || *trip.VehicleID <= 0 {
		return invalid(trip, TransitionStart, "vehicle must be assigned")
	}
	return nil
}

// CanOperate gates stop, signature and report operations, all of which need a
// trip that is under way.
func CanOperate(trip models.Trip, t Transition) error {
	return requireStatus(trip, t, models.TripInProgress)
}

// CanComplete requires every stop departed and a submitted report.
func CanComplete(trip models.Trip, stops []models.TripStop, report *models.TripReport) error {
	if err := requireStatus(trip, TransitionComplete, models.TripInProgress); err != nil {
		return err
	}
	if len(stops) == 0 {
		return invalid(trip, TransitionComplete, "trip has no stops")
	}
	for _, s := range stops {
		if !s.Completed() {
			return invalid(trip, TransitionComplete, "all stops must be completed")
		}
	}
	if report == nil || !report.Submitted() {
		return invalid(trip, TransitionComplete, "trip report must be submitted")
	}
	return nil
}

func CanCancel(trip models.Trip) error {
	return requireStatus(trip, TransitionCancel, models.TripScheduled, models.TripInProgress)
}

// CanNoShow is legal only while the rider has not been picked up.
func CanNoShow(trip models.Trip, stops []models.TripStop) error {
	if err := requireStatus(trip, TransitionNoShow, models.TripInProgress); err != nil {
		return err
	}
	if pickup, ok := FirstPickup(stops); ok && pickup.Completed() {
		return invalid(trip, TransitionNoShow, "pickup stop already completed")
	}
	return nil
}

// FirstPickup returns the lowest-order PICKUP stop.
func FirstPickup(stops []models.TripStop) (models.TripStop, bool) {
	var out models.TripStop
	found := false
	for _, s := range stops {
		if s.StopType != models.StopPickup {
			continue
		}
		if !found || s.StopOrder < out.StopOrder {
			out = s
			found = true
		}
	}
	return out, found
}
