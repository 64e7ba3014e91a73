package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain"

	"github.com/go-sql-driver/mysql"
)

// MySQLStore is the database/sql backed Store.
type MySQLStore struct {
	DB *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func (s *MySQLStore) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s *MySQLStore) Repos() Repos {
	return reposFor(s.db())
}

func (s *MySQLStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		return fn(reposFor(tx))
	})
}

func reposFor(q intdb.DBTX) Repos {
	return Repos{
		Trips:         TripsRepo{DB: q},
		Stops:         StopsRepo{DB: q},
		Members:       MembersRepo{DB: q},
		Reports:       ReportsRepo{DB: q},
		Vehicles:      VehiclesRepo{DB: q},
		Drivers:       DriversRepo{DB: q},
		Notifications: NotificationsRepo{DB: q},
		Claims:        ClaimsRepo{DB: q},
	}
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: resource, Err: err}
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	x := v.Int64
	return &x
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	x := v.Float64
	return &x
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
