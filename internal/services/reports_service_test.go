package services

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/repositories"
)

var reportPathPattern = regexp.MustCompile(`^reports/[A-Z][a-z]+/\d{2}-\d{2}-\d{4}/\d+_tripreport\.pdf$`)

func TestSubmitReportEndToEnd(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	res, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Replayed || len(res.Warnings) != 0 {
		t.Fatalf("unexpected replay/warnings: %+v", res)
	}
	rep := res.Report
	if rep.TotalMiles != 50 || rep.Status != models.ReportSubmitted {
		t.Fatalf("report not reconciled: %+v", rep)
	}
	if rep.PDFFilePath == nil || !reportPathPattern.MatchString(*rep.PDFFilePath) {
		t.Fatalf("unexpected pdf path: %v", rep.PDFFilePath)
	}
	want := fmt.Sprintf("reports/March/03-04-2026/%d_tripreport.pdf", detail.Trip.ID)
	if *rep.PDFFilePath != want {
		t.Fatalf("got path %s want %s", *rep.PDFFilePath, want)
	}
	if info, err := os.Stat(f.files.Abs(*rep.PDFFilePath)); err != nil || info.Size() == 0 {
		t.Fatalf("pdf not written: %v", err)
	}

	trip := f.trip(t, detail.Trip.ID)
	if trip.Status != models.TripCompleted || trip.CompletedAt == nil || trip.ReportStatus != "SUBMITTED" {
		t.Fatalf("trip not completed: %+v", trip)
	}
	vehicle, _ := f.store.Repos().Vehicles.GetByID(f.ctx, 1, f.vehicle.ID)
	if vehicle.Odometer != 10050 {
		t.Fatalf("vehicle odometer should be 10050, got %d", vehicle.Odometer)
	}
	stored, _ := f.store.Repos().Reports.GetByTrip(f.ctx, detail.Trip.ID)
	if stored.PDFFilePath == nil || *stored.PDFFilePath != want {
		t.Fatalf("pdf path not stored on report: %v", stored.PDFFilePath)
	}

	submitted := f.notificationsOfType(t, models.NotificationTripReportSubmitted)
	if len(submitted) != 1 {
		t.Fatalf("expected one TRIP_REPORT_SUBMITTED notification, got %d", len(submitted))
	}
	meta := submitted[0].Metadata
	if meta.TripID == nil || *meta.TripID != detail.Trip.ID || meta.ReportID == nil || *meta.ReportID != rep.ID {
		t.Fatalf("notification metadata wrong: %+v", meta)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != "TRIP_REPORT_SUBMITTED" {
		t.Fatalf("expected one published event, got %+v", f.publisher.events)
	}
}

func TestSubmitReportIsIdempotent(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	first, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10080))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !second.Replayed || second.Report.ID != first.Report.ID || second.Report.EndOdometer != 10050 {
		t.Fatalf("second submit should replay the stored report: %+v", second)
	}
	if got := f.notificationsOfType(t, models.NotificationTripReportSubmitted); len(got) != 1 {
		t.Fatalf("replay must not notify again, got %d notifications", len(got))
	}
	vehicle, _ := f.store.Repos().Vehicles.GetByID(f.ctx, 1, f.vehicle.ID)
	if vehicle.Odometer != 10050 {
		t.Fatalf("replay must not move the odometer, got %d", vehicle.Odometer)
	}
}

func TestSubmitReportRejectsBackwardsOdometer(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	in := f.submitInput(10050, 10000)
	in.IncidentReported = true
	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, in); !domain.IsInvalidMileage(err) {
		t.Fatalf("expected invalid mileage before incident validation, got %v", err)
	}
	if _, err := f.store.Repos().Reports.GetByTrip(f.ctx, detail.Trip.ID); !domain.IsNotFound(err) {
		t.Fatalf("no report should be stored, got %v", err)
	}
	if got := f.trip(t, detail.Trip.ID); got.Status != models.TripInProgress {
		t.Fatalf("trip should stay IN_PROGRESS, got %s", got.Status)
	}
	vehicle, _ := f.store.Repos().Vehicles.GetByID(f.ctx, 1, f.vehicle.ID)
	if vehicle.Odometer != 10000 {
		t.Fatalf("vehicle odometer changed: %d", vehicle.Odometer)
	}
}

func TestSubmitReportOdometersMustMatchTrip(t *testing.T) {
	cases := []struct {
		name       string
		start, end int64
	}{
		{"start below trip start", 5000, 10050},
		{"end past final stop", 10000, 19999},
		{"end short of final stop", 10000, 10040},
	}
	for _, c := range cases {
		f := newFixture(t)
		detail := f.startedTrip(t)
		f.drive(t, detail, 10050)

		if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(c.start, c.end)); !domain.IsInvalidMileage(err) {
			t.Fatalf("%s: expected invalid mileage, got %v", c.name, err)
		}
		if _, err := f.store.Repos().Reports.GetByTrip(f.ctx, detail.Trip.ID); !domain.IsNotFound(err) {
			t.Fatalf("%s: no report should be stored, got %v", c.name, err)
		}
		vehicle, _ := f.store.Repos().Vehicles.GetByID(f.ctx, 1, f.vehicle.ID)
		if vehicle.Odometer != 10000 {
			t.Fatalf("%s: vehicle odometer changed: %d", c.name, vehicle.Odometer)
		}
		if got := f.trip(t, detail.Trip.ID); got.Status != models.TripInProgress {
			t.Fatalf("%s: trip should stay IN_PROGRESS, got %s", c.name, got.Status)
		}
	}
}

type countingVehicles struct {
	repositories.VehicleRepository
	writes *atomic.Int64
}

func (v countingVehicles) UpdateOdometer(ctx context.Context, id, odometer int64) error {
	v.writes.Add(1)
	return v.VehicleRepository.UpdateOdometer(ctx, id, odometer)
}

// countingStore counts vehicle odometer writes made through any Repos it hands out.
type countingStore struct {
	repositories.Store
	writes atomic.Int64
}

func (s *countingStore) wrap(r repositories.Repos) repositories.Repos {
	r.Vehicles = countingVehicles{VehicleRepository: r.Vehicles, writes: &s.writes}
	return r
}

func (s *countingStore) Repos() repositories.Repos { return s.wrap(s.Store.Repos()) }

func (s *countingStore) InTx(ctx context.Context, fn func(r repositories.Repos) error) error {
	return s.Store.InTx(ctx, func(r repositories.Repos) error { return fn(s.wrap(r)) })
}

func TestSubmitReportConcurrentCallsSubmitOnce(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	store := &countingStore{Store: f.store}
	reports := f.reports
	reports.Store = store

	const callers = 8
	var (
		wg      sync.WaitGroup
		results = make([]SubmitResult, callers)
		errs    = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050))
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !results[i].Replayed {
			fresh++
		}
		if results[i].Report.ID != results[0].Report.ID {
			t.Fatalf("callers saw different reports: %d vs %d", results[i].Report.ID, results[0].Report.ID)
		}
	}
	if fresh != 1 {
		t.Fatalf("expected exactly one fresh submit, got %d", fresh)
	}
	if n := store.writes.Load(); n != 1 {
		t.Fatalf("expected one vehicle odometer write, got %d", n)
	}
	if n := len(f.notificationsOfType(t, models.NotificationTripReportSubmitted)); n != 1 {
		t.Fatalf("expected one TRIP_REPORT_SUBMITTED notification, got %d", n)
	}
	vehicle, _ := f.store.Repos().Vehicles.GetByID(f.ctx, 1, f.vehicle.ID)
	if vehicle.Odometer != 10050 {
		t.Fatalf("vehicle odometer should be 10050, got %d", vehicle.Odometer)
	}
}

func TestSubmitReportIncidentNeedsDescription(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	in := f.submitInput(10000, 10050)
	in.IncidentReported = true
	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, in); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	in.IncidentDescription = "Member slipped on ramp, no injury"
	res, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Report.IncidentReported {
		t.Fatalf("incident flag lost")
	}
	if got := f.notificationsOfType(t, models.NotificationIncidentReported); len(got) != 1 {
		t.Fatalf("expected one INCIDENT_REPORTED notification, got %d", len(got))
	}
	if got := f.notificationsOfType(t, models.NotificationTripReportSubmitted); len(got) != 0 {
		t.Fatalf("incident report should not also emit TRIP_REPORT_SUBMITTED")
	}
}

func TestSubmitReportRequiresCompletedStops(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)

	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050)); !domain.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if got := f.trip(t, detail.Trip.ID); got.Status != models.TripInProgress {
		t.Fatalf("trip should stay IN_PROGRESS, got %s", got.Status)
	}
}

func TestSubmitReportChecksDriverAndVehicle(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	wrongDriver := f.submitInput(10000, 10050)
	wrongDriver.DriverID = f.driver.ID + 1000
	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, wrongDriver); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for wrong driver, got %v", err)
	}

	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(9000, 9500)); !domain.IsInvalidMileage(err) {
		t.Fatalf("end below vehicle odometer should be invalid mileage, got %v", err)
	}
}

func TestSubmitReportWithSignature(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	in := f.submitInput(10000, 10050)
	in.Signature = &domain.SignatureInput{
		MemberID:          detail.Members[0].ID,
		SignatureRef:      "sig://proxy",
		IsProxySignature:  true,
		ProxySignerName:   "Sam",
		ProxyRelationship: "Guardian",
		ProxyReason:       "Member is a minor",
	}
	if _, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	m, _ := f.store.Repos().Members.GetByID(f.ctx, detail.Trip.ID, detail.Members[0].ID)
	if !m.Signed() || !m.IsProxySignature || m.ProxyRelationship != "Guardian" {
		t.Fatalf("signature not applied: %+v", m)
	}
}

func TestPDFFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.reports.Renderer = failingRenderer{}
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)

	res, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050))
	if err != nil {
		t.Fatalf("submit should succeed when rendering fails: %v", err)
	}
	if len(res.Warnings) != 1 || res.Report.PDFFilePath != nil {
		t.Fatalf("expected one warning and no pdf path: %+v", res)
	}
	if got := f.trip(t, detail.Trip.ID); got.Status != models.TripCompleted {
		t.Fatalf("trip should be COMPLETED, got %s", got.Status)
	}

	f.reports.Renderer = nil
	rep, err := f.reports.RegeneratePDF(f.ctx, f.rc, detail.Trip.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if rep.PDFFilePath == nil || !f.files.Exists(*rep.PDFFilePath) {
		t.Fatalf("regenerated pdf missing: %v", rep.PDFFilePath)
	}
}

func TestOpenPDFRegeneratesMissingFile(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)
	f.drive(t, detail, 10050)
	res, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	abs := f.files.Abs(*res.Report.PDFFilePath)
	if err := os.Remove(abs); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := f.reports.OpenPDF(f.ctx, f.rc, detail.Trip.ID)
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	if got != abs {
		t.Fatalf("got %s want %s", got, abs)
	}
	if _, err := os.Stat(abs); err != nil {
		t.Fatalf("pdf not regenerated: %v", err)
	}
}

func TestSaveDraftThenSubmit(t *testing.T) {
	f := newFixture(t)
	detail := f.startedTrip(t)

	draft, err := f.reports.SaveDraft(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 0))
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if draft.Status != models.ReportDraft || draft.TotalMiles != 0 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if _, err := f.reports.OpenPDF(f.ctx, f.rc, detail.Trip.ID); !domain.IsInvalidTransition(err) {
		t.Fatalf("draft has no pdf, got %v", err)
	}

	f.drive(t, detail, 10050)
	res, err := f.reports.Submit(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10050))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Report.ID != draft.ID {
		t.Fatalf("submit should promote the draft, got id %d want %d", res.Report.ID, draft.ID)
	}
	if _, err := f.reports.SaveDraft(f.ctx, f.rc, detail.Trip.ID, f.submitInput(10000, 10060)); err == nil {
		t.Fatalf("saving a draft after submit should fail")
	}
}
