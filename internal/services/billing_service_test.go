package services

import (
	"fmt"
	"testing"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/utils"
)

func (f *fixture) completedTrip(t *testing.T, mobility string, end int64) models.TripDetail {
	t.Helper()
	in := f.tripInput()
	in.MobilityRequirement = mobility
	detail, err := f.trips.Create(f.ctx, f.rc, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	vehicle, _ := f.store.Repos().Vehicles.GetByID(f.ctx, 1, f.vehicle.ID)
	if _, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.drive(t, detail, vehicle.Odometer+end)
	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(vehicle.Odometer, vehicle.Odometer+end)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return detail
}

func TestGenerateClaimsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	amb := f.completedTrip(t, "AMBULATORY", 50)
	wc := f.completedTrip(t, "wheelchair", 10)
	pending := f.createTrip(t)

	claims, err := f.billing.Generate(f.ctx, f.rc, []int64{amb.Trip.ID, wc.Trip.ID, pending.Trip.ID, 99999})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(claims))
	}
	byTrip := map[int64]models.Claim{}
	for _, c := range claims {
		byTrip[c.TripID] = c
	}

	c := byTrip[amb.Trip.ID]
	if c.ProcedureCode != utils.ProcedureAmbulatory || c.MileageCode != utils.ProcedureMileage {
		t.Fatalf("unexpected codes: %+v", c)
	}
	if c.Miles != 50 || c.BaseAmount != 2500 || c.MileageAmount != 12500 || c.BilledAmount != 15000 {
		t.Fatalf("unexpected amounts: %+v", c)
	}
	if want := fmt.Sprintf("CLM-1-20260304-%d", amb.Trip.ID); c.ClaimNumber != want {
		t.Fatalf("got claim number %s want %s", c.ClaimNumber, want)
	}
	if byTrip[wc.Trip.ID].ProcedureCode != utils.ProcedureWheelchair {
		t.Fatalf("wheelchair trip billed as %s", byTrip[wc.Trip.ID].ProcedureCode)
	}

	again, err := f.billing.Generate(f.ctx, f.rc, nil)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second pass should create nothing, got %d", len(again))
	}
	all, _ := f.billing.ListClaims(f.ctx, f.rc)
	if len(all) != 2 {
		t.Fatalf("expected 2 claims stored, got %d", len(all))
	}
}

func TestVoidClaimAllowsRebilling(t *testing.T) {
	f := newFixture(t)
	trip := f.completedTrip(t, "STRETCHER", 20)

	unbilled, err := f.billing.ListUnbilled(f.ctx, f.rc)
	if err != nil || len(unbilled) != 1 {
		t.Fatalf("expected one unbilled trip, got %d err=%v", len(unbilled), err)
	}

	first, err := f.billing.Generate(f.ctx, f.rc, nil)
	if err != nil || len(first) != 1 {
		t.Fatalf("generate: %d claims err=%v", len(first), err)
	}
	if unbilled, _ := f.billing.ListUnbilled(f.ctx, f.rc); len(unbilled) != 0 {
		t.Fatalf("billed trip should not be unbilled")
	}

	voided, err := f.billing.VoidClaim(f.ctx, f.rc, first[0].ID)
	if err != nil || voided.Status != models.ClaimVoid {
		t.Fatalf("void: %+v err=%v", voided, err)
	}
	if _, err := f.billing.VoidClaim(f.ctx, f.rc, first[0].ID); err != nil {
		t.Fatalf("voiding twice should be a no-op, got %v", err)
	}

	rebilled, err := f.billing.Generate(f.ctx, f.rc, []int64{trip.Trip.ID})
	if err != nil || len(rebilled) != 1 {
		t.Fatalf("rebill: %d claims err=%v", len(rebilled), err)
	}
	if want := fmt.Sprintf("CLM-1-20260304-%d-R1", trip.Trip.ID); rebilled[0].ClaimNumber != want {
		t.Fatalf("got %s want %s", rebilled[0].ClaimNumber, want)
	}
	if rebilled[0].ProcedureCode != utils.ProcedureStretcher {
		t.Fatalf("unexpected procedure %s", rebilled[0].ProcedureCode)
	}
}

func TestVoidClaimScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	f.completedTrip(t, "AMBULATORY", 5)
	claims, _ := f.billing.Generate(f.ctx, f.rc, nil)

	other := f.rc
	other.OrganizationID = 2
	if _, err := f.billing.VoidClaim(f.ctx, other, claims[0].ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBillingMileageRateOverride(t *testing.T) {
	f := newFixture(t)
	f.billing.Rates = utils.RateTable{MileageRate: 300}
	f.completedTrip(t, "AMBULATORY", 10)

	claims, err := f.billing.Generate(f.ctx, f.rc, nil)
	if err != nil || len(claims) != 1 {
		t.Fatalf("generate: %v", err)
	}
	if claims[0].MileageAmount != 3000 || claims[0].BaseAmount != 2500 {
		t.Fatalf("rate override not applied: %+v", claims[0])
	}
}
