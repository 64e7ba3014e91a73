package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain/models"
)

const tripColumns = `id, organization_id, trip_date, trip_type, status, driver_id, vehicle_id,
	mobility_requirement, procedure_code, start_odometer, started_at, completed_at,
	cancellation_reason, cancelled_by, cancelled_at, no_show_notes, report_status,
	COALESCE(notes,''), created_by, created_at, updated_at`

type TripsRepo struct {
	DB intdb.DBTX
}

func (r TripsRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanTrip(row scanner) (models.Trip, error) {
	var (
		t                                          models.Trip
		tripType, status                           string
		driverID, vehicleID, startOdo, cancelledBy sql.NullInt64
		startedAt, completedAt, cancelledAt        sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.TripDate, &tripType, &status, &driverID, &vehicleID,
		&t.MobilityRequirement, &t.ProcedureCode, &startOdo, &startedAt, &completedAt,
		&t.CancellationReason, &cancelledBy, &cancelledAt, &t.NoShowNotes, &t.ReportStatus,
		&t.Notes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return models.Trip{}, err
	}
	t.TripType = models.TripType(tripType)
	t.Status = models.TripStatus(status)
	t.DriverID = intPtr(driverID)
	t.VehicleID = intPtr(vehicleID)
	t.StartOdometer = intPtr(startOdo)
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(completedAt)
	t.CancelledBy = intPtr(cancelledBy)
	t.CancelledAt = timePtr(cancelledAt)
	return t, nil
}

func (r TripsRepo) Create(ctx context.Context, t *models.Trip) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO trips (organization_id, trip_date, trip_type, status, driver_id, vehicle_id,
			mobility_requirement, procedure_code, start_odometer, notes, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.OrganizationID, t.TripDate, string(t.TripType), string(t.Status), nullInt(t.DriverID), nullInt(t.VehicleID),
		t.MobilityRequirement, t.ProcedureCode, nullInt(t.StartOdometer), intdb.NullIfEmpty(t.Notes), t.CreatedBy,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (r TripsRepo) GetByID(ctx context.Context, orgID, id int64) (models.Trip, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=? AND organization_id=?`, id, orgID)
	t, err := scanTrip(row)
	return t, notFound(err, "trip")
}

func (r TripsRepo) LockByID(ctx context.Context, orgID, id int64) (models.Trip, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=? AND organization_id=? FOR UPDATE`, id, orgID)
	t, err := scanTrip(row)
	return t, notFound(err, "trip")
}

func (r TripsRepo) Update(ctx context.Context, t models.Trip) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE trips
		SET trip_date=?, trip_type=?, status=?, driver_id=?, vehicle_id=?, mobility_requirement=?,
			procedure_code=?, start_odometer=?, started_at=?, completed_at=?, cancellation_reason=?,
			cancelled_by=?, cancelled_at=?, no_show_notes=?, report_status=?, notes=?, updated_at=?
		WHERE id=? AND organization_id=?
	`, t.TripDate, string(t.TripType), string(t.Status), nullInt(t.DriverID), nullInt(t.VehicleID), t.MobilityRequirement,
		t.ProcedureCode, nullInt(t.StartOdometer), nullTime(t.StartedAt), nullTime(t.CompletedAt), t.CancellationReason,
		nullInt(t.CancelledBy), nullTime(t.CancelledAt), t.NoShowNotes, t.ReportStatus, intdb.NullIfEmpty(t.Notes), t.UpdatedAt,
		t.ID, t.OrganizationID)
	if err != nil {
		return fmt.Errorf("update trip %d: %w", t.ID, err)
	}
	return nil
}

func (r TripsRepo) List(ctx context.Context, orgID int64, f models.TripFilter) ([]models.Trip, error) {
	where := []string{"organization_id=?"}
	args := []any{orgID}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	if f.DriverID != nil {
		where = append(where, "driver_id=?")
		args = append(args, *f.DriverID)
	}
	if f.Date != nil {
		where = append(where, "trip_date=?")
		args = append(args, f.Date.Format(time.DateOnly))
	}

	query := `SELECT ` + tripColumns + ` FROM trips WHERE ` + strings.Join(where, " AND ") + ` ORDER BY trip_date DESC, id DESC`
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
