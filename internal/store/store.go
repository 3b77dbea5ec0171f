package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const maxIDAttempts = 8

// ErrIDExhausted means every generated id collided with an existing row.
var ErrIDExhausted = errors.New("store: could not allocate a unique id")

type dialect struct {
	name     string
	numbered bool

	blob    string
	autoID  string
	cascade string
}

var dialects = map[string]dialect{
	"sqlite": {
		name:   "sqlite",
		blob:   "BLOB",
		autoID: "INTEGER PRIMARY KEY AUTOINCREMENT",
	},
	"postgres": {
		name:     "postgres",
		numbered: true,
		blob:     "BYTEA",
		autoID:   "BIGSERIAL PRIMARY KEY",
		cascade:  " CASCADE",
	},
	"mysql": {
		name:   "mysql",
		blob:   "LONGBLOB",
		autoID: "BIGINT AUTO_INCREMENT PRIMARY KEY",
	},
}

// Store is the relational persistence layer. All queries are written with ?
// placeholders and rebound for drivers that number them.
type Store struct {
	db    *sql.DB
	d     dialect
	newID func() string
}

// Open connects to driver ("sqlite", "postgres" or "mysql") at dsn. For
// sqlite, dsn is a file path; its directory is created when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" || driver == "sqlite3" {
		driver = "sqlite"
	}
	if driver == "postgresql" || driver == "pg" {
		driver = "postgres"
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	if driver == "sqlite" {
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		}
	}
	if driver == "mysql" && !strings.Contains(dsn, "clientFoundRows") {
		// report matched rather than changed rows so no-op updates are not misses
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "clientFoundRows=true"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite" {
		// one writer keeps sqlite free of SQLITE_BUSY under concurrent handlers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, d: d, newID: NewID}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Driver() string { return s.d.name }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) rebind(q string) string {
	if !s.d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(q), args...)
}

// insertWithID runs an insert whose first argument is a freshly generated id,
// retrying with a new id when the primary key collides.
func (s *Store) insertWithID(ctx context.Context, q string, rest ...any) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		args := append([]any{id}, rest...)
		_, err := s.exec(ctx, q, args...)
		if err == nil {
			return id, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return "", err
	}
	return "", ErrIDExhausted
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

func affectedOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullMillis(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
