package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Song struct {
	ID      string
	OwnerID string
	Name    string
	Artist  string
	Data    []byte
}

type Playlist struct {
	ID      string
	OwnerID string
	Name    string
	SongIDs []string
}

func (s *Store) CreateSong(ctx context.Context, song *Song) error {
	if song == nil {
		return fmt.Errorf("song is nil")
	}
	if len(song.Data) == 0 {
		return fmt.Errorf("song %q has no audio", song.Name)
	}
	id, err := s.insertWithID(ctx,
		"INSERT INTO songs (song_id, user_id, name, bytes, artist) VALUES (?, ?, ?, ?, ?)",
		song.OwnerID, song.Name, song.Data, song.Artist,
	)
	if err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	song.ID = id
	return nil
}

func (s *Store) GetSong(ctx context.Context, id string) (Song, error) {
	var song Song
	err := s.queryRow(ctx, "SELECT song_id, user_id, name, bytes, artist FROM songs WHERE song_id = ?", id).
		Scan(&song.ID, &song.OwnerID, &song.Name, &song.Data, &song.Artist)
	if errors.Is(err, sql.ErrNoRows) {
		return Song{}, notFound("song", id)
	}
	if err != nil {
		return Song{}, fmt.Errorf("get song: %w", err)
	}
	return song, nil
}

func (s *Store) CreatePlaylist(ctx context.Context, p *Playlist) error {
	if p == nil {
		return fmt.Errorf("playlist is nil")
	}
	id, err := s.insertWithID(ctx, "INSERT INTO playlists (playlist_id, user_id, name) VALUES (?, ?, ?)", p.OwnerID, p.Name)
	if err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	p.ID = id
	return nil
}

// GetPlaylist loads a playlist with its song ids in the order they were added.
func (s *Store) GetPlaylist(ctx context.Context, id string) (Playlist, error) {
	var p Playlist
	err := s.queryRow(ctx, "SELECT playlist_id, user_id, name FROM playlists WHERE playlist_id = ?", id).
		Scan(&p.ID, &p.OwnerID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, notFound("playlist", id)
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	rows, err := s.query(ctx, "SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY position, song_id", id)
	if err != nil {
		return Playlist{}, fmt.Errorf("list playlist songs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var songID string
		if err := rows.Scan(&songID); err != nil {
			return Playlist{}, fmt.Errorf("scan playlist song: %w", err)
		}
		p.SongIDs = append(p.SongIDs, songID)
	}
	return p, rows.Err()
}

// AddSongToPlaylist appends songID to a playlist owned by ownerID. Adding a
// song that is already present is a no-op.
func (s *Store) AddSongToPlaylist(ctx context.Context, playlistID, songID, ownerID string) error {
	p, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	if p.OwnerID != ownerID {
		return notFound("playlist", playlistID)
	}
	if _, err := s.GetSong(ctx, songID); err != nil {
		return err
	}
	_, err = s.exec(ctx,
		"INSERT INTO playlist_songs (playlist_id, song_id, position) VALUES (?, ?, ?)",
		playlistID, songID, time.Now().UnixNano(),
	)
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("add song to playlist: %w", err)
	}
	return nil
}

func (s *Store) RemoveSongFromPlaylist(ctx context.Context, playlistID, songID, ownerID string) error {
	p, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	if p.OwnerID != ownerID {
		return notFound("playlist", playlistID)
	}
	res, err := s.exec(ctx, "DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?", playlistID, songID)
	if err != nil {
		return fmt.Errorf("remove song from playlist: %w", err)
	}
	return affectedOne(res, "song", songID)
}

// PlaylistSongs loads the songs of a playlist in playlist order, audio
// included.
func (s *Store) PlaylistSongs(ctx context.Context, playlistID string) ([]Song, error) {
	rows, err := s.query(ctx,
		"SELECT s.song_id, s.user_id, s.name, s.bytes, s.artist FROM playlist_songs ps "+
			"JOIN songs s ON s.song_id = ps.song_id WHERE ps.playlist_id = ? ORDER BY ps.position, s.song_id",
		playlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list playlist songs: %w", err)
	}
	defer rows.Close()
	var out []Song
	for rows.Next() {
		var song Song
		if err := rows.Scan(&song.ID, &song.OwnerID, &song.Name, &song.Data, &song.Artist); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		out = append(out, song)
	}
	return out, rows.Err()
}
