// internal/store/sql.go
//
// Direct SQL backend on sqlx.
//
// Context
// -------
// Self-hosted deployments skip the REST front and write to the database
// directly.  The same table layout is used for every driver; only the DDL in
// Migrate differs.  IDs (UUIDv4) and timestamps are assigned here so Insert
// needs no driver-specific RETURNING clause.
//
// Driver errors are folded into *Error with Postgres SQLSTATE codes:
//
//	mysql   1062            → 23505
//	mysql   1044/1045/1142  → 42501
//	pgx     PgError.Code    → passed through
//	sqlite  UNIQUE/PK       → 23505
//	sqlite  AUTH/READONLY   → 42501
//
// Anything that is not a driver error (context cancelled, broken pipe) stays
// a plain wrapped error and reads as a transport failure upstream.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL implements Store on an open *sqlx.DB.
type SQL struct {
	db    *sqlx.DB
	table string

	newID func() string
	now   func() time.Time
}

var _ Store = (*SQL)(nil)

// NewSQL wraps db.  The table name is interpolated into statements, so it
// must be a plain identifier.
func NewSQL(db *sqlx.DB, table string) (*SQL, error) {
	if db == nil {
		return nil, errors.New("store: nil db")
	}
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}
	return &SQL{
		db:    db,
		table: table,
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}, nil
}

// Ping runs a count against the table, which exercises both the connection
// and the SELECT grant.
func (s *SQL) Ping(ctx context.Context) error {
	var n int64
	q := "SELECT COUNT(*) FROM " + s.table
	if err := s.db.QueryRowxContext(ctx, q).Scan(&n); err != nil {
		return classify(err)
	}
	return nil
}

// Insert writes rec with a fresh id and created_at.
func (s *SQL) Insert(ctx context.Context, rec NewRecord) (*Record, error) {
	out := &Record{
		ID:        s.newID(),
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
		NewRecord: rec,
	}

	q := s.db.Rebind(`INSERT INTO ` + s.table + ` (id, first_name, last_name, email, phone, company_name, service_interest, budget, project_details, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		out.ID,
		out.FirstName,
		out.LastName,
		out.Email,
		out.Phone,
		out.CompanyName,
		out.ServiceInterest,
		out.Budget,
		out.ProjectDetails,
		out.CreatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Migrate creates the table when missing.
func (s *SQL) Migrate(ctx context.Context) error {
	ddl, err := createTable(s.db.DriverName(), s.table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: migrate %s: %w", s.table, classify(err))
	}
	return nil
}

func createTable(driver, table string) (string, error) {
	switch driver {
	case "sqlite":
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id               TEXT PRIMARY KEY,
	first_name       TEXT NOT NULL,
	last_name        TEXT NOT NULL,
	email            TEXT NOT NULL,
	phone            TEXT,
	company_name     TEXT NOT NULL,
	service_interest TEXT,
	budget           TEXT,
	project_details  TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL
)`, nil
	case "mysql":
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id               CHAR(36) NOT NULL PRIMARY KEY,
	first_name       VARCHAR(50) NOT NULL,
	last_name        VARCHAR(50) NOT NULL,
	email            VARCHAR(255) NOT NULL,
	phone            VARCHAR(64) NULL,
	company_name     VARCHAR(100) NOT NULL,
	service_interest VARCHAR(64) NULL,
	budget           VARCHAR(64) NULL,
	project_details  TEXT NOT NULL,
	created_at       DATETIME(6) NOT NULL
) DEFAULT CHARSET=utf8mb4`, nil
	case "pgx":
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id               UUID PRIMARY KEY,
	first_name       TEXT NOT NULL,
	last_name        TEXT NOT NULL,
	email            TEXT NOT NULL,
	phone            TEXT,
	company_name     TEXT NOT NULL,
	service_interest TEXT,
	budget           TEXT,
	project_details  TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`, nil
	}
	return "", fmt.Errorf("store: no schema for driver %q", driver)
}

// -----------------------------------------------------------------------------
// Error classification
// -----------------------------------------------------------------------------

func classify(err error) error {
	if err == nil {
		return nil
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		var code string
		if me.SQLState[0] != 0 {
			code = string(me.SQLState[:])
		}
		switch me.Number {
		case 1062:
			code = CodeUniqueViolation
		case 1044, 1045, 1142:
			code = CodePermissionDenied
		}
		return &Error{Code: code, Message: me.Message}
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return &Error{Code: pe.Code, Message: pe.Message, Details: pe.Detail, Hint: pe.Hint}
	}

	var le *sqlite.Error
	if errors.As(err, &le) {
		return &Error{Code: sqliteCode(le), Message: le.Error()}
	}

	return err
}

func sqliteCode(e *sqlite.Error) string {
	switch code := e.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return CodeUniqueViolation
	case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(e.Error(), "UNIQUE constraint"):
		return CodeUniqueViolation
	case code&0xff == sqlite3.SQLITE_AUTH,
		code&0xff == sqlite3.SQLITE_READONLY:
		return CodePermissionDenied
	}
	return ""
}
