package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain"
	"nemt/internal/domain/models"
)

const reportColumns = `id, trip_id, organization_id, driver_id, start_odometer, end_odometer, total_miles,
	pickup_time, dropoff_time, service_verified, client_arrived, incident_reported,
	COALESCE(incident_description,''), COALESCE(notes,''), status, pdf_file_path, submitted_at,
	created_at, updated_at`

type ReportsRepo struct {
	DB intdb.DBTX
}

func (r ReportsRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanReport(row scanner) (models.TripReport, error) {
	var (
		rep                          models.TripReport
		status                       string
		pickup, dropoff, submittedAt sql.NullTime
		pdfPath                      sql.NullString
	)
	err := row.Scan(&rep.ID, &rep.TripID, &rep.OrganizationID, &rep.DriverID, &rep.StartOdometer, &rep.EndOdometer,
		&rep.TotalMiles, &pickup, &dropoff, &rep.ServiceVerified, &rep.ClientArrived, &rep.IncidentReported,
		&rep.IncidentDescription, &rep.Notes, &status, &pdfPath, &submittedAt, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return models.TripReport{}, err
	}
	rep.Status = models.ReportStatus(status)
	rep.PickupTime = timePtr(pickup)
	rep.DropoffTime = timePtr(dropoff)
	rep.SubmittedAt = timePtr(submittedAt)
	rep.PDFFilePath = stringPtr(pdfPath)
	return rep, nil
}

func (r ReportsRepo) GetByTrip(ctx context.Context, tripID int64) (models.TripReport, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+reportColumns+` FROM trip_reports WHERE trip_id=?`, tripID)
	rep, err := scanReport(row)
	return rep, notFound(err, "trip report")
}

func (r ReportsRepo) LockByTrip(ctx context.Context, tripID int64) (models.TripReport, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+reportColumns+` FROM trip_reports WHERE trip_id=? FOR UPDATE`, tripID)
	rep, err := scanReport(row)
	return rep, notFound(err, "trip report")
}

func (r ReportsRepo) Create(ctx context.Context, rep *models.TripReport) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO trip_reports (trip_id, organization_id, driver_id, start_odometer, end_odometer, total_miles,
			pickup_time, dropoff_time, service_verified, client_arrived, incident_reported, incident_description,
			notes, status, pdf_file_path, submitted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rep.TripID, rep.OrganizationID, rep.DriverID, rep.StartOdometer, rep.EndOdometer, rep.TotalMiles,
		nullTime(rep.PickupTime), nullTime(rep.DropoffTime), rep.ServiceVerified, rep.ClientArrived, rep.IncidentReported,
		intdb.NullIfEmpty(rep.IncidentDescription), intdb.NullIfEmpty(rep.Notes), string(rep.Status),
		nullString(rep.PDFFilePath), nullTime(rep.SubmittedAt), rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "trip report", Msg: "report already exists for trip", Err: err}
		}
		return fmt.Errorf("insert trip report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = id
	return nil
}

// Update rewrites a report's data fields. Callers must not update a SUBMITTED report.
func (r ReportsRepo) Update(ctx context.Context, rep models.TripReport) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE trip_reports
		SET driver_id=?, start_odometer=?, end_odometer=?, total_miles=?, pickup_time=?, dropoff_time=?,
			service_verified=?, client_arrived=?, incident_reported=?, incident_description=?, notes=?,
			status=?, submitted_at=?, updated_at=?
		WHERE id=? AND status<>?
	`, rep.DriverID, rep.StartOdometer, rep.EndOdometer, rep.TotalMiles, nullTime(rep.PickupTime), nullTime(rep.DropoffTime),
		rep.ServiceVerified, rep.ClientArrived, rep.IncidentReported, intdb.NullIfEmpty(rep.IncidentDescription),
		intdb.NullIfEmpty(rep.Notes), string(rep.Status), nullTime(rep.SubmittedAt), rep.UpdatedAt,
		rep.ID, string(models.ReportSubmitted))
	if err != nil {
		return fmt.Errorf("update trip report %d: %w", rep.ID, err)
	}
	return nil
}

func (r ReportsRepo) SetPDFPath(ctx context.Context, id int64, path string) error {
	_, err := r.db().ExecContext(ctx, `UPDATE trip_reports SET pdf_file_path=? WHERE id=?`, path, id)
	if err != nil {
		return fmt.Errorf("set pdf path for report %d: %w", id, err)
	}
	return nil
}
