package repositories

import (
	"context"
	"fmt"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain/models"
)

// VehiclesRepo reads vehicles owned by the fleet service and writes only the odometer.
type VehiclesRepo struct {
	DB intdb.DBTX
}

func (r VehiclesRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r VehiclesRepo) get(ctx context.Context, orgID, id int64, lock bool) (models.Vehicle, error) {
	q := `SELECT id, organization_id, vehicle_code, plate_number, odometer FROM vehicles WHERE id=? AND organization_id=?`
	if lock {
		q += ` FOR UPDATE`
	}
	var v models.Vehicle
	err := r.db().QueryRowContext(ctx, q, id, orgID).Scan(&v.ID, &v.OrganizationID, &v.VehicleCode, &v.PlateNumber, &v.Odometer)
	return v, notFound(err, "vehicle")
}

func (r VehiclesRepo) GetByID(ctx context.Context, orgID, id int64) (models.Vehicle, error) {
	return r.get(ctx, orgID, id, false)
}

func (r VehiclesRepo) LockByID(ctx context.Context, orgID, id int64) (models.Vehicle, error) {
	return r.get(ctx, orgID, id, true)
}

func (r VehiclesRepo) UpdateOdometer(ctx context.Context, id, odometer int64) error {
	if _, err := r.db().ExecContext(ctx, `UPDATE vehicles SET odometer=? WHERE id=?`, odometer, id); err != nil {
		return fmt.Errorf("update vehicle %d odometer: %w", id, err)
	}
	return nil
}

type DriversRepo struct {
	DB intdb.DBTX
}

func (r DriversRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r DriversRepo) GetByID(ctx context.Context, orgID, id int64) (models.Driver, error) {
	var d models.Driver
	err := r.db().QueryRowContext(ctx, `
		SELECT id, organization_id, name, COALESCE(phone,''), COALESCE(license_number,'')
		FROM drivers WHERE id=? AND organization_id=?
	`, id, orgID).Scan(&d.ID, &d.OrganizationID, &d.Name, &d.Phone, &d.LicenseNumber)
	return d, notFound(err, "driver")
}
