package domain

import (
	"testing"
	"time"

	"nemt/internal/domain/models"
)

func int64p(v int64) *int64 { return &v }

func inProgressTrip() models.Trip {
	return models.Trip{ID: 1, Status: models.TripInProgress, StartOdometer: int64p(10000)}
}

func twoStops() []models.TripStop {
	return []models.TripStop{
		{ID: 11, TripID: 1, StopType: models.StopPickup, StopOrder: 1, Address: "A"},
		{ID: 12, TripID: 1, StopType: models.StopDropoff, StopOrder: 2, Address: "B"},
	}
}

func TestValidateStopPlanAssignsOrders(t *testing.T) {
	stops, err := ValidateStopPlan([]models.TripStop{
		{StopType: models.StopPickup, Address: "A"},
		{StopType: models.StopDropoff, Address: "B"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stops[0].StopOrder != 1 || stops[1].StopOrder != 2 {
		t.Fatalf("orders not assigned: %+v", stops)
	}
}

func TestValidateStopPlanRejectsGapsAndDuplicates(t *testing.T) {
	cases := [][]models.TripStop{
		{{StopType: models.StopPickup, StopOrder: 1, Address: "A"}, {StopType: models.StopDropoff, StopOrder: 3, Address: "B"}},
		{{StopType: models.StopPickup, StopOrder: 1, Address: "A"}, {StopType: models.StopDropoff, StopOrder: 1, Address: "B"}},
		{{StopType: models.StopDropoff, StopOrder: 1, Address: "A"}, {StopType: models.StopDropoff, StopOrder: 2, Address: "B"}},
		{{StopType: models.StopPickup, StopOrder: 1, Address: "A"}, {StopType: models.StopPickup, StopOrder: 2, Address: "B"}},
		{{StopType: models.StopPickup, StopOrder: 1, Address: "A"}},
	}
	for i, c := range cases {
		if _, err := ValidateStopPlan(c); !IsValidation(err) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCheckArriveRequiresPreviousStopCompleted(t *testing.T) {
	trip := inProgressTrip()
	stops := twoStops()

	if _, err := CheckArrive(trip, stops, 12); !IsInvalidTransition(err) {
		t.Fatalf("arriving at stop 2 first should fail, got %v", err)
	}
	idx, err := CheckArrive(trip, stops, 11)
	if err != nil || idx != 0 {
		t.Fatalf("arrive stop 1: idx=%d err=%v", idx, err)
	}

	now := time.Now()
	stops[0].ActualArrivalTime = &now
	if _, err := CheckArrive(trip, stops, 11); !IsInvalidTransition(err) {
		t.Fatalf("double arrival should fail, got %v", err)
	}
	if _, err := CheckArrive(trip, stops, 12); !IsInvalidTransition(err) {
		t.Fatalf("stop 2 arrival before stop 1 completion should fail, got %v", err)
	}
}

func TestCheckCompleteOrdering(t *testing.T) {
	trip := inProgressTrip()
	stops := twoStops()
	now := time.Now()
	stops[0].ActualArrivalTime = &now
	stops[1].ActualArrivalTime = &now

	if _, err := CheckComplete(trip, stops, 12, int64p(10050)); !IsInvalidTransition(err) {
		t.Fatalf("completing stop 2 before stop 1 should fail, got %v", err)
	}
	if _, err := CheckComplete(trip, stops, 11, nil); err != nil {
		t.Fatalf("odometer optional on first stop, got %v", err)
	}
}

func TestCheckCompleteFinalStopOdometer(t *testing.T) {
	trip := inProgressTrip()
	stops := twoStops()
	now := time.Now()
	stops[0].ActualArrivalTime = &now
	stops[0].ActualDepartureTime = &now
	stops[1].ActualArrivalTime = &now

	if _, err := CheckComplete(trip, stops, 12, nil); !IsValidation(err) {
		t.Fatalf("missing final odometer should be validation error, got %v", err)
	}
	if _, err := CheckComplete(trip, stops, 12, int64p(9999)); !IsInvalidMileage(err) {
		t.Fatalf("odometer below start should be invalid mileage, got %v", err)
	}
	if _, err := CheckComplete(trip, stops, 12, int64p(10050)); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCheckCompleteRequiresArrival(t *testing.T) {
	trip := inProgressTrip()
	stops := twoStops()
	if _, err := CheckComplete(trip, stops, 11, nil); !IsInvalidTransition(err) {
		t.Fatalf("complete before arrive should fail, got %v", err)
	}
	if _, err := CheckComplete(trip, stops, 99, nil); !IsNotFound(err) {
		t.Fatalf("unknown stop should be not found, got %v", err)
	}
}
