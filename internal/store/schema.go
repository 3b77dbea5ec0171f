package store

import (
	"context"
	"fmt"
	"strings"
)

// tables in dependency order; reset drops them in reverse.
var tables = []string{
	"users",
	"tasks",
	"time_table",
	"time_table_status",
	"focus_mode",
	"songs",
	"playlists",
	"playlist_songs",
	"flashcards",
	"flashcard_sets",
	"flashcard_set_access",
	"flashcard_set_cards",
	"flashcard_history",
}

func (s *Store) schema() []string {
	blob := s.d.blob
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			join_date BIGINT NOT NULL,
			dob BIGINT,
			institution VARCHAR(256),
			time_zone SMALLINT
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tasks (
			task_id %s,
			user_id VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL,
			description TEXT,
			status VARCHAR(32),
			due_date BIGINT,
			completion_time BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`, s.d.autoID),
		`CREATE TABLE IF NOT EXISTS time_table (
			tt_id VARCHAR(12) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL,
			description TEXT,
			days SMALLINT NOT NULL,
			time SMALLINT NOT NULL,
			duration SMALLINT,
			ping BOOLEAN NOT NULL,
			active BOOLEAN NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS time_table_status (
			tt_id VARCHAR(12) NOT NULL,
			time BIGINT NOT NULL,
			status VARCHAR(32),
			PRIMARY KEY (tt_id, time),
			FOREIGN KEY (tt_id) REFERENCES time_table(tt_id)
		)`,
		`CREATE TABLE IF NOT EXISTS focus_mode (
			user_id VARCHAR(64) NOT NULL,
			start_time BIGINT NOT NULL,
			duration BIGINT NOT NULL,
			PRIMARY KEY (user_id, start_time),
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS songs (
			song_id VARCHAR(12) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL,
			bytes %s NOT NULL,
			artist VARCHAR(64) NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`, blob),
		`CREATE TABLE IF NOT EXISTS playlists (
			playlist_id VARCHAR(12) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS playlist_songs (
			playlist_id VARCHAR(12) NOT NULL,
			song_id VARCHAR(12) NOT NULL,
			position BIGINT NOT NULL,
			PRIMARY KEY (playlist_id, song_id),
			FOREIGN KEY (playlist_id) REFERENCES playlists(playlist_id),
			FOREIGN KEY (song_id) REFERENCES songs(song_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS flashcards (
			card_id VARCHAR(12) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			question TEXT NOT NULL,
			options TEXT,
			answer TEXT,
			image %s,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`, blob),
		`CREATE TABLE IF NOT EXISTS flashcard_sets (
			card_set_id VARCHAR(12) PRIMARY KEY,
			name VARCHAR(128) NOT NULL,
			owner VARCHAR(64) NOT NULL,
			description TEXT,
			FOREIGN KEY (owner) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS flashcard_set_access (
			card_set_id VARCHAR(12) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			PRIMARY KEY (card_set_id, user_id),
			FOREIGN KEY (card_set_id) REFERENCES flashcard_sets(card_set_id),
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS flashcard_set_cards (
			card_set_id VARCHAR(12) NOT NULL,
			card_id VARCHAR(12) NOT NULL,
			added_by VARCHAR(64) NOT NULL,
			position BIGINT NOT NULL,
			PRIMARY KEY (card_set_id, card_id),
			FOREIGN KEY (card_set_id) REFERENCES flashcard_sets(card_set_id),
			FOREIGN KEY (card_id) REFERENCES flashcards(card_id)
		)`,
		`CREATE TABLE IF NOT EXISTS flashcard_history (
			card_id VARCHAR(12) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			time BIGINT NOT NULL,
			correct BOOLEAN NOT NULL,
			PRIMARY KEY (card_id, user_id, time),
			FOREIGN KEY (card_id) REFERENCES flashcards(card_id),
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_time_table_due ON time_table(time)`,
	}
}

// Migrate creates every table that does not exist yet. With reset, existing
// tables are dropped first and all data is lost.
func (s *Store) Migrate(ctx context.Context, reset bool) error {
	if reset {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+tables[i]+s.d.cascade); err != nil {
				return fmt.Errorf("drop %s: %w", tables[i], err)
			}
		}
	}
	for _, stmt := range s.schema() {
		if s.d.name == "mysql" && strings.HasPrefix(stmt, "CREATE INDEX") {
			// mysql has no CREATE INDEX IF NOT EXISTS; the due lookup still works without it
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
