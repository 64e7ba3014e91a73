package models

import "time"

type ClaimStatus string

const (
	ClaimPending ClaimStatus = "PENDING"
	ClaimVoid    ClaimStatus = "VOID"
)

// Claim is a billing record derived from a completed, reported trip.
// Amounts are in cents.
type Claim struct {
	ID             int64       `json:"id"`
	OrganizationID int64       `json:"organizationId"`
	TripID         int64       `json:"tripId"`
	ReportID       int64       `json:"reportId"`
	ClaimNumber    string      `json:"claimNumber"`
	ProcedureCode  string      `json:"procedureCode"`
	MileageCode    string      `json:"mileageCode"`
	Miles          int64       `json:"miles"`
	BaseAmount     int64       `json:"baseAmount"`
	MileageAmount  int64       `json:"mileageAmount"`
	BilledAmount   int64       `json:"billedAmount"`
	Status         ClaimStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// UnbilledTrip is a completed trip with a submitted report and no active claim.
type UnbilledTrip struct {
	Trip   Trip       `json:"trip"`
	Report TripReport `json:"report"`
}
