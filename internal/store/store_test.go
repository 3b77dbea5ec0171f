package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studybot/internal/alert"
	"studybot/internal/errs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "studybot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx, false))
	return s
}

func registerTestUser(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.RegisterUser(context.Background(), User{ID: id, Name: "user-" + id}))
}

func fixedIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
}

func TestNewIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewID()
		require.True(t, ValidID(id), "id %q", id)
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
	require.False(t, ValidID("short"))
	require.False(t, ValidID("abc-def_ghij"))
}

func TestRebindNumbersPlaceholdersForPostgres(t *testing.T) {
	s := &Store{d: dialects["postgres"]}
	require.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	s.d = dialects["sqlite"]
	require.Equal(t, "x = ?", s.rebind("x = ?"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	_, err = Open(context.Background(), "sqlite", " ")
	require.Error(t, err)
}

func TestMigrateIsIdempotentAndResets(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")

	require.NoError(t, s.Migrate(ctx, false))
	ok, err := s.UserExists(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Migrate(ctx, true))
	ok, err = s.UserExists(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")

	err := s.RegisterUser(ctx, User{ID: "u1", Name: "again"})
	require.True(t, errors.Is(err, errs.ErrValidation), "got %v", err)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "user-u1", u.Name)
	require.Nil(t, u.DOB)
	require.Nil(t, u.TimeZone)

	tz := -5
	dob := time.Date(2001, 4, 2, 0, 0, 0, 0, time.UTC)
	u.Institution = "MIT"
	u.TimeZone = &tz
	u.DOB = &dob
	require.NoError(t, s.UpdateUser(ctx, u))

	u, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "MIT", u.Institution)
	require.NotNil(t, u.TimeZone)
	require.Equal(t, -5, *u.TimeZone)
	require.True(t, u.DOB.Equal(dob))

	_, err = s.GetUser(ctx, "nobody")
	require.True(t, errors.Is(err, errs.ErrNotFound))
	require.ErrorIs(t, s.UpdateUser(ctx, User{ID: "nobody", Name: "x"}), errs.ErrNotFound)
}

func TestAlertsDueMatchesEligibility(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")

	// Monday and Wednesday at 09:00.
	e := alert.Entry{OwnerID: "u1", Name: "Lecture", Days: 10, Time: 900, DurationMinutes: 60, Notify: true, Active: true}
	require.NoError(t, s.CreateAlert(ctx, &e))
	require.True(t, ValidID(e.ID))

	muted := alert.Entry{OwnerID: "u1", Name: "Muted", Days: 10, Time: 900, Notify: false, Active: true}
	require.NoError(t, s.CreateAlert(ctx, &muted))
	inactive := alert.Entry{OwnerID: "u1", Name: "Off", Days: 10, Time: 900, Notify: true, Active: false}
	require.NoError(t, s.CreateAlert(ctx, &inactive))

	cases := []struct {
		day  time.Weekday
		hhmm int
		want int
	}{
		{time.Monday, 900, 1},
		{time.Wednesday, 900, 1},
		{time.Monday, 901, 0},
		{time.Tuesday, 900, 0},
		{time.Sunday, 900, 0},
	}
	for _, tc := range cases {
		due, err := s.ListDue(ctx, alert.DayBit(tc.day), tc.hhmm)
		require.NoError(t, err)
		require.Len(t, due, tc.want, "%s %d", tc.day, tc.hhmm)
		for _, d := range due {
			require.Equal(t, e.ID, d.ID)
			require.Equal(t, "u1", d.OwnerID)
			require.Equal(t, 60, d.DurationMinutes)
		}
	}
}

func TestAlertLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")
	registerTestUser(t, s, "u2")

	e := alert.Entry{OwnerID: "u1", Name: "Gym", Description: "legs", Days: alert.AllDays, Time: 1830, Notify: true, Active: true}
	require.NoError(t, s.CreateAlert(ctx, &e))

	got, err := s.GetAlert(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, e, got)

	list, err := s.ListAlertsByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, s.DeleteAlert(ctx, e.ID, "u2"), errs.ErrNotFound)
	require.NoError(t, s.DeleteAlert(ctx, e.ID, "u1"))

	_, err = s.GetAlert(ctx, e.ID)
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, e.ID, nf.ID)
}

func TestInsertRetriesOnIDCollision(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")

	s.newID = fixedIDs("AAAAAAAAAAAA")
	first := alert.Entry{OwnerID: "u1", Name: "a", Days: 1, Time: 100, Active: true}
	require.NoError(t, s.CreateAlert(ctx, &first))
	require.Equal(t, "AAAAAAAAAAAA", first.ID)

	s.newID = fixedIDs("AAAAAAAAAAAA", "BBBBBBBBBBBB")
	second := alert.Entry{OwnerID: "u1", Name: "b", Days: 1, Time: 100, Active: true}
	require.NoError(t, s.CreateAlert(ctx, &second))
	require.Equal(t, "BBBBBBBBBBBB", second.ID)

	s.newID = fixedIDs("AAAAAAAAAAAA")
	third := alert.Entry{OwnerID: "u1", Name: "c", Days: 1, Time: 100, Active: true}
	err := s.CreateAlert(ctx, &third)
	require.ErrorIs(t, err, ErrIDExhausted)
	require.False(t, errors.Is(err, errs.ErrNotFound))
}

func TestNotFoundIsDistinctFromStorageFailure(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.GetAlert(ctx, "AAAAAAAAAAAA")
	require.Error(t, err)
	require.False(t, errors.Is(err, errs.ErrNotFound), "closed database reported as not found: %v", err)
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")
	registerTestUser(t, s, "u2")

	a, err := s.AddTask(ctx, "u1", "essay")
	require.NoError(t, err)
	require.NotZero(t, a.ID)
	b, err := s.AddTask(ctx, "u1", "lab")
	require.NoError(t, err)
	require.Greater(t, b.ID, a.ID)

	require.NoError(t, s.SetTaskDescription(ctx, "u1", a.ID, "2000 words"))
	require.NoError(t, s.SetTaskStatus(ctx, "u1", a.ID, TaskStarted, time.Now()))
	done := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetTaskStatus(ctx, "u1", b.ID, TaskDone, done))
	due := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetTaskDueDate(ctx, "u1", a.ID, due))

	got, err := s.FindTaskByName(ctx, "u1", "essay")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Equal(t, "2000 words", got.Description)
	require.Equal(t, TaskStarted, got.Status)
	require.True(t, got.DueAt.Equal(due))
	require.Nil(t, got.CompletedAt)

	got, err = s.GetTask(ctx, "u1", b.ID)
	require.NoError(t, err)
	require.Equal(t, TaskDone, got.Status)
	require.True(t, got.CompletedAt.Equal(done))

	// other users cannot see or touch the task
	_, err = s.GetTask(ctx, "u2", a.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, s.DeleteTask(ctx, "u2", a.ID), errs.ErrNotFound)

	require.NoError(t, s.DeleteTask(ctx, "u1", a.ID))
	list, err := s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "lab", list[0].Name)
}

func TestFlashcardsAndSets(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")
	registerTestUser(t, s, "u2")

	c1 := Flashcard{AuthorID: "u1", Question: "2+2?", Answer: "4", Options: []string{"3", "5", "22"}}
	require.NoError(t, s.CreateFlashcard(ctx, &c1))
	c2 := Flashcard{AuthorID: "u1", Question: "Capital of France?", Answer: "Paris", Image: []byte{0x89, 'P', 'N', 'G'}}
	require.NoError(t, s.CreateFlashcard(ctx, &c2))

	got, err := s.GetFlashcard(ctx, c1.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"3", "5", "22"}, got.Options)
	require.Nil(t, got.Image)
	got, err = s.GetFlashcard(ctx, c2.ID)
	require.NoError(t, err)
	require.Empty(t, got.Options)
	require.Equal(t, c2.Image, got.Image)

	list, err := s.ListFlashcards(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	set := FlashcardSet{Name: "Basics", OwnerID: "u1", Description: "warm up"}
	require.NoError(t, s.CreateFlashcardSet(ctx, &set))
	require.NoError(t, s.AddToSet(ctx, set.ID, c2.ID, "u1"))
	require.NoError(t, s.AddToSet(ctx, set.ID, c1.ID, "u1"))
	require.NoError(t, s.AddToSet(ctx, set.ID, c2.ID, "u1"))

	loaded, err := s.GetFlashcardSet(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, "warm up", loaded.Description)
	require.Equal(t, []string{c2.ID, c1.ID}, loaded.CardIDs)

	cards, err := s.SetFlashcards(ctx, set.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, c2.ID, cards[0].ID)

	require.NoError(t, s.AddFlashcardHistory(ctx, c1.ID, "u2", time.Now(), true))

	require.ErrorIs(t, s.DeleteFlashcard(ctx, c1.ID, "u2"), errs.ErrNotFound)
	require.NoError(t, s.DeleteFlashcard(ctx, c1.ID, "u1"))
	loaded, err = s.GetFlashcardSet(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, []string{c2.ID}, loaded.CardIDs)

	require.NoError(t, s.RemoveFromSet(ctx, set.ID, c2.ID))
	loaded, err = s.GetFlashcardSet(ctx, set.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.CardIDs)

	_, err = s.GetFlashcardSet(ctx, "missing00000")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSongsAndPlaylists(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	registerTestUser(t, s, "u1")
	registerTestUser(t, s, "u2")

	song := Song{OwnerID: "u1", Name: "Blue", Artist: "Joni", Data: []byte("ID3 audio")}
	require.NoError(t, s.CreateSong(ctx, &song))
	require.Error(t, s.CreateSong(ctx, &Song{OwnerID: "u1", Name: "empty"}))

	got, err := s.GetSong(ctx, song.ID)
	require.NoError(t, err)
	require.Equal(t, song, got)

	p := Playlist{OwnerID: "u1", Name: "Focus"}
	require.NoError(t, s.CreatePlaylist(ctx, &p))
	require.NoError(t, s.AddSongToPlaylist(ctx, p.ID, song.ID, "u1"))
	require.NoError(t, s.AddSongToPlaylist(ctx, p.ID, song.ID, "u1"))
	require.ErrorIs(t, s.AddSongToPlaylist(ctx, p.ID, song.ID, "u2"), errs.ErrNotFound)
	require.ErrorIs(t, s.AddSongToPlaylist(ctx, p.ID, "nosuchsong00", "u1"), errs.ErrNotFound)

	loaded, err := s.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, []string{song.ID}, loaded.SongIDs)

	songs, err := s.PlaylistSongs(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	require.Equal(t, song.Data, songs[0].Data)

	require.NoError(t, s.RemoveSongFromPlaylist(ctx, p.ID, song.ID, "u1"))
	require.ErrorIs(t, s.RemoveSongFromPlaylist(ctx, p.ID, song.ID, "u1"), errs.ErrNotFound)
}
