package services

import (
	"testing"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
)

func TestCreateTripInitialStatus(t *testing.T) {
	f := newFixture(t)

	detail := f.createTrip(t)
	if detail.Trip.Status != models.TripScheduled {
		t.Fatalf("dispatcher trip should be SCHEDULED, got %s", detail.Trip.Status)
	}
	if len(detail.Stops) != 2 || detail.Stops[0].StopOrder != 1 || detail.Stops[1].StopOrder != 2 {
		t.Fatalf("stops not created in order: %+v", detail.Stops)
	}
	if detail.Trip.MobilityRequirement != models.MobilityAmbulatory {
		t.Fatalf("mobility not normalized: %s", detail.Trip.MobilityRequirement)
	}

	memberRC := f.rc
	memberRC.Role = domain.RoleMember
	pending, err := f.trips.Create(f.ctx, memberRC, f.tripInput())
	if err != nil {
		t.Fatalf("create as member: %v", err)
	}
	if pending.Trip.Status != models.TripPendingApproval {
		t.Fatalf("member trip should need approval, got %s", pending.Trip.Status)
	}
}

func TestCreateTripValidation(t *testing.T) {
	f := newFixture(t)

	noMembers := f.tripInput()
	noMembers.Members = nil
	if _, err := f.trips.Create(f.ctx, f.rc, noMembers); !domain.IsValidation(err) {
		t.Fatalf("expected validation error without members, got %v", err)
	}

	badStops := f.tripInput()
	badStops.Stops = badStops.Stops[:1]
	if _, err := f.trips.Create(f.ctx, f.rc, badStops); !domain.IsValidation(err) {
		t.Fatalf("expected validation error with one stop, got %v", err)
	}

	otherVehicle := f.tripInput()
	missing := int64(9999)
	otherVehicle.VehicleID = &missing
	if _, err := f.trips.Create(f.ctx, f.rc, otherVehicle); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown vehicle, got %v", err)
	}

	unknownCode := f.tripInput()
	unknownCode.ProcedureCode = "A0999"
	if _, err := f.trips.Create(f.ctx, f.rc, unknownCode); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown procedure code, got %v", err)
	}

	trips, _ := f.trips.List(f.ctx, f.rc, models.TripFilter{})
	if len(trips) != 0 {
		t.Fatalf("failed creates must not leave trips behind, got %d", len(trips))
	}
}

func TestUpdateProcedureCodeOverride(t *testing.T) {
	f := newFixture(t)
	detail := f.createTrip(t)

	bad := "X1234"
	if _, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{ProcedureCode: &bad}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown procedure code, got %v", err)
	}
	stretcher := " t2005 "
	trip, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{ProcedureCode: &stretcher})
	if err != nil {
		t.Fatalf("update procedure code: %v", err)
	}
	if trip.ProcedureCode != "T2005" {
		t.Fatalf("procedure code not normalized: %q", trip.ProcedureCode)
	}
}

func TestDriverPendingOnlyOnApproval(t *testing.T) {
	f := newFixture(t)
	in := f.tripInput()
	in.DriverID = nil
	in.RequiresApproval = true
	detail, err := f.trips.Create(f.ctx, f.rc, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := len(f.notificationsOfType(t, models.NotificationDriverPending)); n != 0 {
		t.Fatalf("pending-approval trip should not notify yet, got %d", n)
	}

	scheduled := "SCHEDULED"
	if _, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{Status: &scheduled}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	notes := "call on arrival"
	if _, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{Notes: &notes}); err != nil {
		t.Fatalf("edit notes: %v", err)
	}
	if _, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{Status: &scheduled}); err != nil {
		t.Fatalf("approve again: %v", err)
	}
	if n := len(f.notificationsOfType(t, models.NotificationDriverPending)); n != 1 {
		t.Fatalf("expected one DRIVER_PENDING after approval, got %d", n)
	}
}

func TestApproveThenStart(t *testing.T) {
	f := newFixture(t)
	in := f.tripInput()
	in.RequiresApproval = true
	detail, err := f.trips.Create(f.ctx, f.rc, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{}); !domain.IsInvalidTransition(err) {
		t.Fatalf("starting a pending trip should fail, got %v", err)
	}

	scheduled := "SCHEDULED"
	trip, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{Status: &scheduled})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if trip.Status != models.TripScheduled {
		t.Fatalf("expected SCHEDULED, got %s", trip.Status)
	}

	started, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.TripInProgress || started.StartedAt == nil {
		t.Fatalf("trip not started: %+v", started)
	}
	if started.StartOdometer == nil || *started.StartOdometer != 10000 {
		t.Fatalf("start odometer should default to vehicle odometer")
	}

	completed := "COMPLETED"
	if _, err := f.trips.Update(f.ctx, f.rc, detail.Trip.ID, UpdateTripInput{Status: &completed}); !domain.IsInvalidTransition(err) {
		t.Fatalf("update after start should fail, got %v", err)
	}
}

func TestStartRejectsOdometerBelowVehicle(t *testing.T) {
	f := newFixture(t)
	detail := f.createTrip(t)
	low := int64(9000)
	if _, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{StartOdometer: &low}); !domain.IsInvalidMileage(err) {
		t.Fatalf("expected invalid mileage, got %v", err)
	}
	if got := f.trip(t, detail.Trip.ID); got.Status != models.TripScheduled {
		t.Fatalf("trip should stay SCHEDULED, got %s", got.Status)
	}
}

func TestStartRequiresAssignment(t *testing.T) {
	f := newFixture(t)
	in := f.tripInput()
	in.DriverID = nil
	detail, err := f.trips.Create(f.ctx, f.rc, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{}); !domain.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition without driver, got %v", err)
	}
	if got := f.notificationsOfType(t, models.NotificationDriverPending); len(got) != 1 {
		t.Fatalf("expected one DRIVER_PENDING notification, got %d", len(got))
	}
}

func TestStopsCompleteInOrder(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	first, second := detail.Stops[0], detail.Stops[1]
	end := int64(10050)

	if _, err := f.trips.ArriveStop(f.ctx, f.rc, detail.Trip.ID, second.ID, GPSInput{}); !domain.IsInvalidTransition(err) {
		t.Fatalf("arriving at stop 2 first should fail, got %v", err)
	}
	if _, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, second.ID, CompleteStopInput{OdometerReading: &end}); !domain.IsInvalidTransition(err) {
		t.Fatalf("completing stop 2 before stop 1 should fail, got %v", err)
	}

	lat, lon := 40.71, -74.0
	stop, err := f.trips.ArriveStop(f.ctx, f.rc, detail.Trip.ID, first.ID, GPSInput{Latitude: &lat, Longitude: &lon})
	if err != nil {
		t.Fatalf("arrive stop 1: %v", err)
	}
	if stop.ActualArrivalTime == nil || stop.Latitude == nil || *stop.Latitude != lat {
		t.Fatalf("arrival not recorded: %+v", stop)
	}
	if _, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, first.ID, CompleteStopInput{}); err != nil {
		t.Fatalf("complete stop 1: %v", err)
	}

	members, _ := f.store.Repos().Members.ListByTrip(f.ctx, detail.Trip.ID)
	if members[0].MemberStatus != models.MemberOnBoard {
		t.Fatalf("member should be ON_BOARD after pickup, got %s", members[0].MemberStatus)
	}

	if _, err := f.trips.ArriveStop(f.ctx, f.rc, detail.Trip.ID, second.ID, GPSInput{}); err != nil {
		t.Fatalf("arrive stop 2: %v", err)
	}
	if _, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, second.ID, CompleteStopInput{}); !domain.IsValidation(err) {
		t.Fatalf("final stop without odometer should fail validation, got %v", err)
	}
	below := int64(9999)
	if _, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, second.ID, CompleteStopInput{OdometerReading: &below}); !domain.IsInvalidMileage(err) {
		t.Fatalf("final odometer below start should be invalid mileage, got %v", err)
	}
	done, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, second.ID, CompleteStopInput{OdometerReading: &end})
	if err != nil {
		t.Fatalf("complete stop 2: %v", err)
	}
	if done.OdometerReading == nil || *done.OdometerReading != end {
		t.Fatalf("odometer not recorded on final stop")
	}

	members, _ = f.store.Repos().Members.ListByTrip(f.ctx, detail.Trip.ID)
	if members[0].MemberStatus != models.MemberDroppedOff {
		t.Fatalf("member should be DROPPED_OFF at final stop, got %s", members[0].MemberStatus)
	}
}

func TestCaptureSignature(t *testing.T) {
	f := newFixture(t)
	detail := f.createTrip(t)
	memberID := detail.Members[0].ID

	sig := domain.SignatureInput{SignatureRef: "sig://direct"}
	if _, err := f.trips.CaptureSignature(f.ctx, f.rc, detail.Trip.ID, memberID, sig); !domain.IsInvalidTransition(err) {
		t.Fatalf("signing before start should fail, got %v", err)
	}
	if _, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	blankProxy := domain.SignatureInput{SignatureRef: "sig://proxy", IsProxySignature: true, ProxySignerName: "Pat", ProxyRelationship: "", ProxyReason: "asleep"}
	if _, err := f.trips.CaptureSignature(f.ctx, f.rc, detail.Trip.ID, memberID, blankProxy); !domain.IsValidation(err) {
		t.Fatalf("proxy with blank relationship should fail, got %v", err)
	}

	proxy := blankProxy
	proxy.ProxyRelationship = "Parent"
	m, err := f.trips.CaptureSignature(f.ctx, f.rc, detail.Trip.ID, memberID, proxy)
	if err != nil {
		t.Fatalf("complete proxy signature rejected: %v", err)
	}
	if !m.IsProxySignature || m.ProxySignerName != "Pat" || m.SignedAt == nil {
		t.Fatalf("proxy signature not stored: %+v", m)
	}

	m, err = f.trips.CaptureSignature(f.ctx, f.rc, detail.Trip.ID, memberID, sig)
	if err != nil {
		t.Fatalf("re-sign: %v", err)
	}
	if m.IsProxySignature || m.SignatureRef != "sig://direct" {
		t.Fatalf("re-sign should overwrite: %+v", m)
	}

	if _, err := f.trips.CaptureSignature(f.ctx, f.rc, detail.Trip.ID, 424242, sig); !domain.IsNotFound(err) {
		t.Fatalf("unknown member should be not found, got %v", err)
	}
}

func TestCompleteBeforeStopsFails(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)

	if _, err := f.trips.Complete(f.ctx, f.rc, detail.Trip.ID); !domain.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if got := f.trip(t, detail.Trip.ID); got.Status != models.TripInProgress {
		t.Fatalf("trip should stay IN_PROGRESS, got %s", got.Status)
	}
}

func TestCancelNotifies(t *testing.T) {
	f := newFixture(t)
	detail := f.createTrip(t)

	if _, _, err := f.trips.Cancel(f.ctx, f.rc, detail.Trip.ID, "  "); !domain.IsValidation(err) {
		t.Fatalf("blank reason should fail, got %v", err)
	}
	trip, warnings, err := f.trips.Cancel(f.ctx, f.rc, detail.Trip.ID, "member hospitalized")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if trip.Status != models.TripCancelled || trip.CancelledBy == nil || *trip.CancelledBy != f.rc.UserID || trip.CancelledAt == nil {
		t.Fatalf("cancel fields not set: %+v", trip)
	}
	if got := f.notificationsOfType(t, models.NotificationTripCancelled); len(got) != 1 {
		t.Fatalf("expected one TRIP_CANCELLED notification, got %d", len(got))
	}
	if _, _, err := f.trips.Cancel(f.ctx, f.rc, detail.Trip.ID, "again"); !domain.IsInvalidTransition(err) {
		t.Fatalf("cancelling a cancelled trip should fail, got %v", err)
	}
}

func TestNoShowMarksMembers(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)

	trip, _, err := f.trips.NoShow(f.ctx, f.rc, detail.Trip.ID, "nobody answered")
	if err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if trip.Status != models.TripNoShow || trip.NoShowNotes != "nobody answered" {
		t.Fatalf("no-show fields not set: %+v", trip)
	}
	members, _ := f.store.Repos().Members.ListByTrip(f.ctx, detail.Trip.ID)
	for _, m := range members {
		if m.MemberStatus != models.MemberNoShow {
			t.Fatalf("member %d should be NO_SHOW, got %s", m.MemberID, m.MemberStatus)
		}
	}
	if got := f.notificationsOfType(t, models.NotificationTripNoShow); len(got) != 1 {
		t.Fatalf("expected one TRIP_NO_SHOW notification, got %d", len(got))
	}
}

func TestNoShowAfterPickupFails(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	first := detail.Stops[0]
	if _, err := f.trips.ArriveStop(f.ctx, f.rc, detail.Trip.ID, first.ID, GPSInput{}); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if _, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, first.ID, CompleteStopInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := f.trips.NoShow(f.ctx, f.rc, detail.Trip.ID, ""); !domain.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTripsAreScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	detail := f.createTrip(t)

	other := f.rc
	other.OrganizationID = 2
	if _, err := f.trips.Get(f.ctx, other, detail.Trip.ID); !domain.IsNotFound(err) {
		t.Fatalf("other organization should not see trip, got %v", err)
	}
	got, err := f.trips.Get(f.ctx, f.rc, detail.Trip.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Stops) != 2 || len(got.Members) != 1 {
		t.Fatalf("detail incomplete: %+v", got)
	}
}
