package models

// Vehicle is read by the lifecycle; only its odometer is written, by report submission.
type Vehicle struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organizationId"`
	VehicleCode    string `json:"vehicleCode"`
	PlateNumber    string `json:"plateNumber"`
	Odometer       int64  `json:"odometer"`
}

type Driver struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organizationId"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	LicenseNumber  string `json:"licenseNumber"`
}
