package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studybot/internal/alert"
)

const alertColumns = "tt_id, user_id, name, description, days, time, duration, ping, active"

// CreateAlert stores e under a freshly generated id and writes the id back.
func (s *Store) CreateAlert(ctx context.Context, e *alert.Entry) error {
	if e == nil {
		return fmt.Errorf("alert entry is nil")
	}
	id, err := s.insertWithID(ctx,
		"INSERT INTO time_table ("+alertColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.OwnerID, e.Name, nullString(e.Description), int(e.Days), e.Time, e.DurationMinutes, e.Notify, e.Active,
	)
	if err != nil {
		return fmt.Errorf("insert time table entry: %w", err)
	}
	e.ID = id
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (alert.Entry, error) {
	row := s.queryRow(ctx, "SELECT "+alertColumns+" FROM time_table WHERE tt_id = ?", id)
	e, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return alert.Entry{}, notFound("time table entry", id)
	}
	if err != nil {
		return alert.Entry{}, fmt.Errorf("get time table entry: %w", err)
	}
	return e, nil
}

// DeleteAlert removes an entry owned by ownerID.
func (s *Store) DeleteAlert(ctx context.Context, id, ownerID string) error {
	res, err := s.exec(ctx, "DELETE FROM time_table WHERE tt_id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete time table entry: %w", err)
	}
	return affectedOne(res, "time table entry", id)
}

func (s *Store) ListAlertsByOwner(ctx context.Context, ownerID string) ([]alert.Entry, error) {
	rows, err := s.query(ctx, "SELECT "+alertColumns+" FROM time_table WHERE user_id = ? ORDER BY time, tt_id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list time table: %w", err)
	}
	return collectAlerts(rows)
}

// ListDue returns active, notifying entries recurring on dayBit at hhmm.
func (s *Store) ListDue(ctx context.Context, dayBit uint8, hhmm int) ([]alert.Entry, error) {
	rows, err := s.query(ctx,
		"SELECT "+alertColumns+" FROM time_table WHERE active AND ping AND (days & ?) <> 0 AND time = ? ORDER BY tt_id",
		int(dayBit), hhmm,
	)
	if err != nil {
		return nil, fmt.Errorf("list due time table entries: %w", err)
	}
	return collectAlerts(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(r scanner) (alert.Entry, error) {
	var (
		e        alert.Entry
		desc     sql.NullString
		days     int
		duration sql.NullInt64
	)
	if err := r.Scan(&e.ID, &e.OwnerID, &e.Name, &desc, &days, &e.Time, &duration, &e.Notify, &e.Active); err != nil {
		return alert.Entry{}, err
	}
	e.Description = desc.String
	e.Days = uint8(days) & alert.AllDays
	e.DurationMinutes = int(duration.Int64)
	return e, nil
}

func collectAlerts(rows *sql.Rows) ([]alert.Entry, error) {
	defer rows.Close()
	var out []alert.Entry
	for rows.Next() {
		e, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time table entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
