package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studybot/internal/errs"
)

type User struct {
	ID          string
	Name        string
	JoinedAt    time.Time
	DOB         *time.Time
	Institution string
	TimeZone    *int
}

// RegisterUser inserts u. Registering twice is a validation error.
func (s *Store) RegisterUser(ctx context.Context, u User) error {
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now()
	}
	_, err := s.exec(ctx, "INSERT INTO users (user_id, name, join_date) VALUES (?, ?, ?)", u.ID, u.Name, millis(u.JoinedAt))
	if isUniqueViolation(err) {
		return errs.Validation("You are already registered.", "")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var (
		u           User
		joined      int64
		dob         sql.NullInt64
		institution sql.NullString
		tz          sql.NullInt64
	)
	err := s.queryRow(ctx, "SELECT user_id, name, join_date, dob, institution, time_zone FROM users WHERE user_id = ?", id).
		Scan(&u.ID, &u.Name, &joined, &dob, &institution, &tz)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, notFound("user", id)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.JoinedAt = fromMillis(joined)
	u.DOB = timePtr(dob)
	u.Institution = institution.String
	if tz.Valid {
		v := int(tz.Int64)
		u.TimeZone = &v
	}
	return u, nil
}

// UserExists reports whether id is registered without treating a miss as an
// error.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetUser(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) UpdateUser(ctx context.Context, u User) error {
	var tz any
	if u.TimeZone != nil {
		tz = *u.TimeZone
	}
	res, err := s.exec(ctx,
		"UPDATE users SET name = ?, dob = ?, institution = ?, time_zone = ? WHERE user_id = ?",
		u.Name, nullMillis(u.DOB), nullString(u.Institution), tz, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return affectedOne(res, "user", u.ID)
}
