package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Flashcard struct {
	ID       string
	AuthorID string
	Question string
	Answer   string
	Options  []string
	Image    []byte
}

type FlashcardSet struct {
	ID          string
	Name        string
	OwnerID     string
	Description string
	CardIDs     []string
}

const flashcardColumns = "card_id, user_id, question, options, answer, image"

func (s *Store) CreateFlashcard(ctx context.Context, c *Flashcard) error {
	if c == nil {
		return fmt.Errorf("flashcard is nil")
	}
	opts, err := json.Marshal(nonNilStrings(c.Options))
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	var image any
	if len(c.Image) > 0 {
		image = c.Image
	}
	id, err := s.insertWithID(ctx,
		"INSERT INTO flashcards ("+flashcardColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.AuthorID, c.Question, string(opts), c.Answer, image,
	)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}
	c.ID = id
	return nil
}

func (s *Store) GetFlashcard(ctx context.Context, id string) (Flashcard, error) {
	c, err := scanFlashcard(s.queryRow(ctx, "SELECT "+flashcardColumns+" FROM flashcards WHERE card_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Flashcard{}, notFound("flashcard", id)
	}
	if err != nil {
		return Flashcard{}, fmt.Errorf("get flashcard: %w", err)
	}
	return c, nil
}

func (s *Store) ListFlashcards(ctx context.Context, authorID string) ([]Flashcard, error) {
	rows, err := s.query(ctx, "SELECT "+flashcardColumns+" FROM flashcards WHERE user_id = ? ORDER BY card_id", authorID)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	return collectFlashcards(rows)
}

// DeleteFlashcard removes a card owned by authorID together with its set
// memberships and review history.
func (s *Store) DeleteFlashcard(ctx context.Context, id, authorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var owner string
	err = tx.QueryRowContext(ctx, s.rebind("SELECT user_id FROM flashcards WHERE card_id = ?"), id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != authorID) {
		return notFound("flashcard", id)
	}
	if err != nil {
		return fmt.Errorf("lookup flashcard: %w", err)
	}
	for _, q := range []string{
		"DELETE FROM flashcard_set_cards WHERE card_id = ?",
		"DELETE FROM flashcard_history WHERE card_id = ?",
		"DELETE FROM flashcards WHERE card_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(q), id); err != nil {
			return fmt.Errorf("delete flashcard: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) AddFlashcardHistory(ctx context.Context, cardID, userID string, at time.Time, correct bool) error {
	_, err := s.exec(ctx, "INSERT INTO flashcard_history (card_id, user_id, time, correct) VALUES (?, ?, ?, ?)", cardID, userID, millis(at), correct)
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("insert flashcard history: %w", err)
	}
	return nil
}

func (s *Store) CreateFlashcardSet(ctx context.Context, set *FlashcardSet) error {
	if set == nil {
		return fmt.Errorf("flashcard set is nil")
	}
	id, err := s.insertWithID(ctx,
		"INSERT INTO flashcard_sets (card_set_id, name, owner, description) VALUES (?, ?, ?, ?)",
		set.Name, set.OwnerID, nullString(set.Description),
	)
	if err != nil {
		return fmt.Errorf("insert flashcard set: %w", err)
	}
	set.ID = id
	return nil
}

// GetFlashcardSet loads a set and its card ids in insertion order.
func (s *Store) GetFlashcardSet(ctx context.Context, id string) (FlashcardSet, error) {
	var (
		set  FlashcardSet
		desc sql.NullString
	)
	err := s.queryRow(ctx, "SELECT card_set_id, name, owner, description FROM flashcard_sets WHERE card_set_id = ?", id).
		Scan(&set.ID, &set.Name, &set.OwnerID, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return FlashcardSet{}, notFound("flashcard set", id)
	}
	if err != nil {
		return FlashcardSet{}, fmt.Errorf("get flashcard set: %w", err)
	}
	set.Description = desc.String

	rows, err := s.query(ctx, "SELECT card_id FROM flashcard_set_cards WHERE card_set_id = ? ORDER BY position, card_id", id)
	if err != nil {
		return FlashcardSet{}, fmt.Errorf("list set cards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cardID string
		if err := rows.Scan(&cardID); err != nil {
			return FlashcardSet{}, fmt.Errorf("scan set card: %w", err)
		}
		set.CardIDs = append(set.CardIDs, cardID)
	}
	return set, rows.Err()
}

// AddToSet adds a card to a set. Adding a card twice is a no-op.
func (s *Store) AddToSet(ctx context.Context, setID, cardID, addedBy string) error {
	_, err := s.exec(ctx,
		"INSERT INTO flashcard_set_cards (card_set_id, card_id, added_by, position) VALUES (?, ?, ?, ?)",
		setID, cardID, addedBy, time.Now().UnixNano(),
	)
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("add to set: %w", err)
	}
	return nil
}

// RemoveFromSet removes a card from a set. Removing an absent card is a no-op.
func (s *Store) RemoveFromSet(ctx context.Context, setID, cardID string) error {
	if _, err := s.exec(ctx, "DELETE FROM flashcard_set_cards WHERE card_set_id = ? AND card_id = ?", setID, cardID); err != nil {
		return fmt.Errorf("remove from set: %w", err)
	}
	return nil
}

// SetFlashcards loads the cards of a set in set order.
func (s *Store) SetFlashcards(ctx context.Context, setID string) ([]Flashcard, error) {
	rows, err := s.query(ctx,
		"SELECT f.card_id, f.user_id, f.question, f.options, f.answer, f.image FROM flashcard_set_cards sc "+
			"JOIN flashcards f ON f.card_id = sc.card_id WHERE sc.card_set_id = ? ORDER BY sc.position, f.card_id",
		setID,
	)
	if err != nil {
		return nil, fmt.Errorf("list set flashcards: %w", err)
	}
	return collectFlashcards(rows)
}

func scanFlashcard(r scanner) (Flashcard, error) {
	var (
		c      Flashcard
		opts   sql.NullString
		answer sql.NullString
	)
	if err := r.Scan(&c.ID, &c.AuthorID, &c.Question, &opts, &answer, &c.Image); err != nil {
		return Flashcard{}, err
	}
	c.Answer = answer.String
	if opts.Valid && opts.String != "" {
		if err := json.Unmarshal([]byte(opts.String), &c.Options); err != nil {
			return Flashcard{}, fmt.Errorf("decode options: %w", err)
		}
	}
	if len(c.Image) == 0 {
		c.Image = nil
	}
	return c, nil
}

func collectFlashcards(rows *sql.Rows) ([]Flashcard, error) {
	defer rows.Close()
	var out []Flashcard
	for rows.Next() {
		c, err := scanFlashcard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
