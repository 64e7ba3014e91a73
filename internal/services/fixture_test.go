package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/events"
	"nemt/internal/repositories"
	"nemt/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type failingRenderer struct{}

func (failingRenderer) Render(ReportDocument) ([]byte, error) {
	return nil, errors.New("renderer unavailable")
}

type fixture struct {
	ctx       context.Context
	store     *repositories.MemoryStore
	clock     *fakeClock
	publisher *recordingPublisher
	files     storage.ReportFiles
	rc        domain.RequestContext
	driver    models.Driver
	vehicle   models.Vehicle

	trips         TripService
	reports       ReportService
	notifications NotificationService
	billing       BillingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		store:     repositories.NewMemoryStore(),
		clock:     &fakeClock{now: time.Date(2026, time.March, 4, 9, 0, 0, 0, time.Local)},
		publisher: &recordingPublisher{},
		files:     storage.ReportFiles{Root: t.TempDir()},
		rc:        domain.RequestContext{OrganizationID: 1, UserID: 100, Role: domain.RoleDispatcher, RequestID: "test"},
	}
	f.driver = f.store.SeedDriver(models.Driver{OrganizationID: 1, Name: "Dana Driver", LicenseNumber: "D-123"})
	f.vehicle = f.store.SeedVehicle(models.Vehicle{OrganizationID: 1, VehicleCode: "VAN-7", PlateNumber: "NEMT-7", Odometer: 10000})

	f.notifications = NotificationService{Store: f.store, Publisher: f.publisher, Now: f.clock.Now}
	f.trips = TripService{Store: f.store, Notifications: f.notifications, Now: f.clock.Now}
	f.reports = ReportService{Store: f.store, Notifications: f.notifications, Files: f.files, Now: f.clock.Now}
	f.billing = BillingService{Store: f.store, Now: f.clock.Now}
	return f
}

func (f *fixture) tripInput() CreateTripInput {
	driverID, vehicleID := f.driver.ID, f.vehicle.ID
	return CreateTripInput{
		TripDate:            "2026-03-04",
		TripType:            models.TripTypeDropoff,
		DriverID:            &driverID,
		VehicleID:           &vehicleID,
		MobilityRequirement: "ambulatory",
		Stops: []StopInput{
			{StopType: models.StopPickup, Address: "12 Home St"},
			{StopType: models.StopDropoff, Address: "1 Clinic Ave"},
		},
		Members: []MemberInput{{MemberID: 501, MemberName: "Alex Rider"}},
	}
}

func (f *fixture) createTrip(t *testing.T) models.TripDetail {
	t.Helper()
	detail, err := f.trips.Create(f.ctx, f.rc, f.tripInput())
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return detail
}

// startedTrip returns a trip that is IN_PROGRESS with start odometer 10000.
func (f *fixture) startedTrip(t *testing.T) models.TripDetail {
	t.Helper()
	detail := f.createTrip(t)
	if _, err := f.trips.Start(f.ctx, f.rc, detail.Trip.ID, StartTripInput{}); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	return detail
}

// drive arrives at and completes every stop, ending at endOdometer.
func (f *fixture) drive(t *testing.T, detail models.TripDetail, endOdometer int64) {
	t.Helper()
	for i, stop := range detail.Stops {
		if _, err := f.trips.ArriveStop(f.ctx, f.rc, detail.Trip.ID, stop.ID, GPSInput{}); err != nil {
			t.Fatalf("arrive stop %d: %v", stop.StopOrder, err)
		}
		in := CompleteStopInput{}
		if i == len(detail.Stops)-1 {
			in.OdometerReading = &endOdometer
		}
		if _, err := f.trips.CompleteStop(f.ctx, f.rc, detail.Trip.ID, stop.ID, in); err != nil {
			t.Fatalf("complete stop %d: %v", stop.StopOrder, err)
		}
	}
}

func (f *fixture) submitInput(start, end int64) SubmitReportInput {
	return SubmitReportInput{
		DriverID:        f.driver.ID,
		StartOdometer:   start,
		EndOdometer:     end,
		ServiceVerified: true,
		ClientArrived:   true,
	}
}

func (f *fixture) trip(t *testing.T, id int64) models.Trip {
	t.Helper()
	trip, err := f.store.Repos().Trips.GetByID(f.ctx, f.rc.OrganizationID, id)
	if err != nil {
		t.Fatalf("load trip: %v", err)
	}
	return trip
}

func (f *fixture) notificationsOfType(t *testing.T, typ models.NotificationType) []models.Notification {
	t.Helper()
	all, err := f.notifications.ListAll(f.ctx, f.rc)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	out := []models.Notification{}
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
