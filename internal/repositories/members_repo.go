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

const memberColumns = `id, trip_id, member_id, member_name, member_status, COALESCE(signature_ref,''), signed_at,
	is_proxy_signature, proxy_signer_name, proxy_relationship, proxy_reason`

type MembersRepo struct {
	DB intdb.DBTX
}

func (r MembersRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanMember(row scanner) (models.TripMember, error) {
	var (
		m        models.TripMember
		signedAt sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.TripID, &m.MemberID, &m.MemberName, &m.MemberStatus, &m.SignatureRef, &signedAt,
		&m.IsProxySignature, &m.ProxySignerName, &m.ProxyRelationship, &m.ProxyReason); err != nil {
		return models.TripMember{}, err
	}
	m.SignedAt = timePtr(signedAt)
	return m, nil
}

func (r MembersRepo) Create(ctx context.Context, m *models.TripMember) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO trip_members (trip_id, member_id, member_name, member_status)
		VALUES (?, ?, ?, ?)
	`, m.TripID, m.MemberID, m.MemberName, m.MemberStatus)
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "trip member", Msg: fmt.Sprintf("member %d already on trip", m.MemberID), Err: err}
		}
		return fmt.Errorf("insert trip member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (r MembersRepo) ListByTrip(ctx context.Context, tripID int64) ([]models.TripMember, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT `+memberColumns+` FROM trip_members WHERE trip_id=? ORDER BY id ASC`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TripMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r MembersRepo) GetByID(ctx context.Context, tripID, id int64) (models.TripMember, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+memberColumns+` FROM trip_members WHERE id=? AND trip_id=?`, id, tripID)
	m, err := scanMember(row)
	return m, notFound(err, "trip member")
}

func (r MembersRepo) Update(ctx context.Context, m models.TripMember) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE trip_members
		SET member_status=?, signature_ref=?, signed_at=?, is_proxy_signature=?,
			proxy_signer_name=?, proxy_relationship=?, proxy_reason=?
		WHERE id=? AND trip_id=?
	`, m.MemberStatus, intdb.NullIfEmpty(m.SignatureRef), nullTime(m.SignedAt), m.IsProxySignature,
		m.ProxySignerName, m.ProxyRelationship, m.ProxyReason, m.ID, m.TripID)
	if err != nil {
		return fmt.Errorf("update trip member %d: %w", m.ID, err)
	}
	return nil
}
