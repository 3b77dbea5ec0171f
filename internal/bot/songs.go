package bot

import (
	"context"
	"fmt"
	"strings"

	"studybot/internal/errs"
	"studybot/internal/store"
	"studybot/internal/view"
)

// splitSong reads "<name> by <artist>", splitting at the last " by ".
func splitSong(s string) (name, artist string, ok bool) {
	i := strings.LastIndex(strings.ToLower(s), " by ")
	if i < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(s[:i])
	artist = strings.TrimSpace(s[i+len(" by "):])
	return name, artist, name != "" && artist != ""
}

func (b *Bot) cmdAddSong(ctx context.Context, r *request) error {
	usage := b.prefix + "add_song <song name> by <artist>"
	name, artist, ok := splitSong(r.args)
	if !ok {
		return errs.Validation("Invalid song format.", usage)
	}
	if len(r.msg.Attachments) != 1 {
		return errs.Validation("Please upload only one file.", "")
	}
	if b.files == nil {
		return errs.Validation("Attachments are not supported here.", "")
	}
	data, err := b.files.Download(ctx, r.msg.Attachments[0], maxSongBytes)
	if err != nil {
		return fmt.Errorf("download song: %w", err)
	}
	song := store.Song{OwnerID: r.userID, Name: name, Artist: artist, Data: data}
	if err := b.store.CreateSong(ctx, &song); err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.songEmbed(r.userID, song))
}

func (b *Bot) cmdGetSong(ctx context.Context, r *request) error {
	f, err := argsN(r, 1, b.prefix+"get_song <song_id>")
	if err != nil {
		return err
	}
	song, err := b.store.GetSong(ctx, f[0])
	if err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.songEmbed(r.userID, song), songFile(song))
}

func (b *Bot) cmdCreatePlaylist(ctx context.Context, r *request) error {
	name, err := argText(r, b.prefix+"create_playlist <name>")
	if err != nil {
		return err
	}
	pl := store.Playlist{OwnerID: r.userID, Name: name}
	if err := b.store.CreatePlaylist(ctx, &pl); err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.playlistEmbed(r, pl))
}

func (b *Bot) cmdGetPlaylist(ctx context.Context, r *request) error {
	f, err := argsN(r, 1, b.prefix+"get_playlist <playlist_id>")
	if err != nil {
		return err
	}
	return b.showPlaylist(ctx, r, f[0])
}

func (b *Bot) cmdAddSongToPlaylist(ctx context.Context, r *request) error {
	f, err := argsN(r, 2, b.prefix+"add_song_to_playlist <playlist_id> <song_id>")
	if err != nil {
		return err
	}
	if err := b.store.AddSongToPlaylist(ctx, f[0], f[1], r.userID); err != nil {
		return err
	}
	return b.showPlaylist(ctx, r, f[0])
}

func (b *Bot) cmdRemoveSongFromPlaylist(ctx context.Context, r *request) error {
	f, err := argsN(r, 2, b.prefix+"remove_song_from_playlist <playlist_id> <song_id>")
	if err != nil {
		return err
	}
	if err := b.store.RemoveSongFromPlaylist(ctx, f[0], f[1], r.userID); err != nil {
		return err
	}
	return b.showPlaylist(ctx, r, f[0])
}

func (b *Bot) showPlaylist(ctx context.Context, r *request, id string) error {
	pl, err := b.store.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}
	return b.replyEmbed(ctx, r, b.playlistEmbed(r, pl))
}

// cmdPlayPlaylist pages through a playlist, attaching the current song.
func (b *Bot) cmdPlayPlaylist(ctx context.Context, r *request) error {
	f, err := argsN(r, 1, b.prefix+"play_playlist <playlist_id>")
	if err != nil {
		return err
	}
	pl, err := b.store.GetPlaylist(ctx, f[0])
	if err != nil {
		return err
	}
	songs, err := b.store.PlaylistSongs(ctx, pl.ID)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return b.replyText(ctx, r, "This playlist is empty.")
	}
	userID := r.userID
	return b.open(ctx, r, view.New(view.Pager("playlist", len(songs), func(i int) view.Payload {
		return view.Payload{
			Content:     fmt.Sprintf("%s: song %d/%d", pl.Name, i+1, len(songs)),
			Embed:       b.songEmbed(userID, songs[i]),
			Attachments: []view.Attachment{songFile(songs[i])},
		}
	})))
}

func songFile(s store.Song) view.Attachment {
	return view.Attachment{Filename: s.Name + ".mp3", ContentType: "audio/mpeg", Data: s.Data}
}

func (b *Bot) songEmbed(userID string, s store.Song) *view.Embed {
	e := &view.Embed{Title: "Song Details", Description: "<@" + userID + ">", Color: embedColor}
	addField(e, "Song ID", "`"+s.ID+"`")
	addField(e, "Name", s.Name)
	addField(e, "Artist", s.Artist)
	addField(e, "User ID", s.OwnerID)
	addField(e, "Bytes", fmt.Sprintf("%d bytes", len(s.Data)))
	return e
}

func (b *Bot) playlistEmbed(r *request, pl store.Playlist) *view.Embed {
	e := b.embed(r, "Playlist Details")
	addField(e, "Playlist ID", "`"+pl.ID+"`")
	addField(e, "Name", pl.Name)
	addField(e, "User ID", pl.OwnerID)
	for i, id := range pl.SongIDs {
		addField(e, fmt.Sprintf("Song %d", i+1), "`"+id+"`")
	}
	return e
}
