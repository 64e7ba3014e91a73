package repositories

import (
	"context"
	"fmt"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain"
	"nemt/internal/domain/models"
)

const claimColumns = `id, organization_id, trip_id, report_id, claim_number, procedure_code, mileage_code,
	miles, base_amount, mileage_amount, billed_amount, status, created_at`

type ClaimsRepo struct {
	DB intdb.DBTX
}

func (r ClaimsRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanClaim(row scanner) (models.Claim, error) {
	var (
		c      models.Claim
		status string
	)
	if err := row.Scan(&c.ID, &c.OrganizationID, &c.TripID, &c.ReportID, &c.ClaimNumber, &c.ProcedureCode, &c.MileageCode,
		&c.Miles, &c.BaseAmount, &c.MileageAmount, &c.BilledAmount, &status, &c.CreatedAt); err != nil {
		return models.Claim{}, err
	}
	c.Status = models.ClaimStatus(status)
	return c, nil
}

func (r ClaimsRepo) Create(ctx context.Context, c *models.Claim) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO claims (organization_id, trip_id, report_id, claim_number, procedure_code, mileage_code,
			miles, base_amount, mileage_amount, billed_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.OrganizationID, c.TripID, c.ReportID, c.ClaimNumber, c.ProcedureCode, c.MileageCode,
		c.Miles, c.BaseAmount, c.MileageAmount, c.BilledAmount, string(c.Status), c.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "claim", Msg: fmt.Sprintf("claim number %s already exists", c.ClaimNumber), Err: err}
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r ClaimsRepo) GetByID(ctx context.Context, orgID, id int64) (models.Claim, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id=? AND organization_id=?`, id, orgID)
	c, err := scanClaim(row)
	return c, notFound(err, "claim")
}

func (r ClaimsRepo) list(ctx context.Context, query string, args ...any) ([]models.Claim, error) {
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r ClaimsRepo) ListByTrip(ctx context.Context, tripID int64) ([]models.Claim, error) {
	return r.list(ctx, `SELECT `+claimColumns+` FROM claims WHERE trip_id=? ORDER BY id ASC`, tripID)
}

func (r ClaimsRepo) List(ctx context.Context, orgID int64) ([]models.Claim, error) {
	return r.list(ctx, `SELECT `+claimColumns+` FROM claims WHERE organization_id=? ORDER BY id DESC`, orgID)
}

func (r ClaimsRepo) UpdateStatus(ctx context.Context, id int64, status models.ClaimStatus) error {
	if _, err := r.db().ExecContext(ctx, `UPDATE claims SET status=? WHERE id=?`, string(status), id); err != nil {
		return fmt.Errorf("update claim %d: %w", id, err)
	}
	return nil
}
