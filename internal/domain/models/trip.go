package models

import "time"

type TripStatus string

const (
	TripPendingApproval TripStatus = "PENDING_APPROVAL"
	TripScheduled       TripStatus = "SCHEDULED"
	TripInProgress      TripStatus = "IN_PROGRESS"
	TripCompleted       TripStatus = "COMPLETED"
	TripCancelled       TripStatus = "CANCELLED"
	TripNoShow          TripStatus = "NO_SHOW"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s TripStatus) Terminal() bool {
	switch s {
	case TripCompleted, TripCancelled, TripNoShow:
		return true
	}
	return false
}

type TripType string

const (
	TripTypePickup    TripType = "PICKUP"
	TripTypeDropoff   TripType = "DROPOFF"
	TripTypeRoundTrip TripType = "ROUND_TRIP"
)

// Mobility requirements drive the billed procedure code.
const (
	MobilityAmbulatory = "AMBULATORY"
	MobilityWheelchair = "WHEELCHAIR"
	MobilityStretcher  = "STRETCHER"
)

// Trip is the lifecycle aggregate. Stops and members hang off it by trip id.
type Trip struct {
	ID                  int64      `json:"id"`
	OrganizationID      int64      `json:"organizationId"`
	TripDate            time.Time  `json:"tripDate"`
	TripType            TripType   `json:"tripType"`
	Status              TripStatus `json:"status"`
	DriverID            *int64     `json:"driverId,omitempty"`
	VehicleID           *int64     `json:"vehicleId,omitempty"`
	MobilityRequirement string     `json:"mobilityRequirement"`
	ProcedureCode       string     `json:"procedureCode,omitempty"`
	StartOdometer       *int64     `json:"startOdometer,omitempty"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	CancellationReason  string     `json:"cancellationReason,omitempty"`
	CancelledBy         *int64     `json:"cancelledBy,omitempty"`
	CancelledAt         *time.Time `json:"cancelledAt,omitempty"`
	NoShowNotes         string     `json:"noShowNotes,omitempty"`
	ReportStatus        string     `json:"reportStatus,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedBy           int64      `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// TripFilter narrows trip listings.
type TripFilter struct {
	Status   TripStatus
	DriverID *int64
	Date     *time.Time
}

// TripDetail bundles a trip with its owned rows.
type TripDetail struct {
	Trip    Trip         `json:"trip"`
	Stops   []TripStop   `json:"stops"`
	Members []TripMember `json:"members"`
}
