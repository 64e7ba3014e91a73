package repositories

import (
	"context"
	"time"

	"nemt/internal/domain/models"
)

// TripRepository persists the trip aggregate root. Lock* variants take a row
// lock and must be called inside Store.InTx.
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, orgID, id int64) (models.Trip, error)
	LockByID(ctx context.Context, orgID, id int64) (models.Trip, error)
	Update(ctx context.Context, trip models.Trip) error
	List(ctx context.Context, orgID int64, f models.TripFilter) ([]models.Trip, error)
}

type StopRepository interface {
	Create(ctx context.Context, stop *models.TripStop) error
	ListByTrip(ctx context.Context, tripID int64) ([]models.TripStop, error)
	Update(ctx context.Context, stop models.TripStop) error
}

type MemberRepository interface {
	Create(ctx context.Context, member *models.TripMember) error
	ListByTrip(ctx context.Context, tripID int64) ([]models.TripMember, error)
	GetByID(ctx context.Context, tripID, id int64) (models.TripMember, error)
	Update(ctx context.Context, member models.TripMember) error
}

type ReportRepository interface {
	GetByTrip(ctx context.Context, tripID int64) (models.TripReport, error)
	LockByTrip(ctx context.Context, tripID int64) (models.TripReport, error)
	Create(ctx context.Context, report *models.TripReport) error
	Update(ctx context.Context, report models.TripReport) error
	SetPDFPath(ctx context.Context, id int64, path string) error
}

type VehicleRepository interface {
	GetByID(ctx context.Context, orgID, id int64) (models.Vehicle, error)
	LockByID(ctx context.Context, orgID, id int64) (models.Vehicle, error)
	UpdateOdometer(ctx context.Context, id, odometer int64) error
}

type DriverRepository interface {
	GetByID(ctx context.Context, orgID, id int64) (models.Driver, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, orgID, id int64) (models.Notification, error)
	List(ctx context.Context, orgID int64, unreadOnly bool) ([]models.Notification, error)
	UpdateStatus(ctx context.Context, orgID, id int64, status models.NotificationStatus, readAt *time.Time) error
	MarkAllRead(ctx context.Context, orgID int64, at time.Time) (int64, error)
	CountUnread(ctx context.Context, orgID int64) (int64, error)
}

type ClaimRepository interface {
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, orgID, id int64) (models.Claim, error)
	ListByTrip(ctx context.Context, tripID int64) ([]models.Claim, error)
	List(ctx context.Context, orgID int64) ([]models.Claim, error)
	UpdateStatus(ctx context.Context, id int64, status models.ClaimStatus) error
}

// Repos is one set of repositories bound to the same connection or transaction.
type Repos struct {
	Trips         TripRepository
	Stops         StopRepository
	Members       MemberRepository
	Reports       ReportRepository
	Vehicles      VehicleRepository
	Drivers       DriverRepository
	Notifications NotificationRepository
	Claims        ClaimRepository
}

// Store hands out repositories. InTx commits when fn returns nil and rolls
// back every write made through the passed Repos otherwise.
type Store interface {
	Repos() Repos
	InTx(ctx context.Context, fn func(r Repos) error) error
}
