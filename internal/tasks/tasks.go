package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/matcher"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/services"
	"github.com/desertthunder/songbridge/internal/shared"
)

const (
	// TitlePrefix is prepended to the source name to title the created playlist.
	TitlePrefix = "Imported — "

	// DefaultReverseMaxItems caps how many videos a reverse transfer reads.
	DefaultReverseMaxItems = 100

	// TrackChunkSize is the most URIs Spotify accepts per add call.
	TrackChunkSize = 100

	forwardDescription = "Imported from Spotify"
	forwardPrivacy     = "unlisted"
)

// TrackSource reads the tracks of a Spotify playlist.
type TrackSource interface {
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error)
}

// VideoSink is the YouTube side of a forward transfer.
type VideoSink interface {
	matcher.Searcher
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)
	AddVideo(ctx context.Context, playlistID, videoID string) error
}

// VideoSource reads up to max videos of a YouTube playlist.
type VideoSource interface {
	PlaylistVideos(ctx context.Context, playlistID string, max int) ([]services.Video, error)
}

// TrackSink is the Spotify side of a reverse transfer.
type TrackSink interface {
	matcher.Searcher
	CreatePlaylist(ctx context.Context, name, description string) (string, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// Request names the source playlist of a transfer.
type Request struct {
	PlaylistID   string
	PlaylistName string
}

// PlaylistTitle returns the title given to a playlist created from source name.
func PlaylistTitle(name string) string {
	return TitlePrefix + name
}

// Pipeline runs transfers between the two platforms. A single transfer runs serially.
type Pipeline struct {
	gate            *Gate
	logger          *log.Logger
	reverseMaxItems int
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithGate sets the rate gate waited on before every search and write.
func WithGate(g *Gate) PipelineOption {
	return func(p *Pipeline) { p.gate = g }
}

// WithReverseMaxItems caps the number of videos a reverse transfer reads. Values below one are ignored.
func WithReverseMaxItems(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.reverseMaxItems = n
		}
	}
}

// NewPipeline creates a Pipeline with an unlimited gate unless [WithGate] is given.
func NewPipeline(logger *log.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	p := &Pipeline{
		gate:            NewGate(0, 1),
		logger:          shared.WithLogger(logger, "component", "pipeline"),
		reverseMaxItems: DefaultReverseMaxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// sendProgress sends a progress update through the channel without blocking.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Transfer copies a Spotify playlist into a new unlisted YouTube playlist.
//
// Each track is searched and inserted one at a time. Misses and per-item errors are appended to
// the result's failed items; only a fetch or create failure returns an error.
func (p *Pipeline) Transfer(ctx context.Context, src TrackSource, dst VideoSink, req Request, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: transfer clients not initialized", shared.ErrServiceUnavailable)
	}
	logger := shared.WithLogger(p.logger, "direction", "forward", "playlist", req.PlaylistID)

	p.sendProgress(progress, fetchSourceUpdate(models.Spotify.DisplayName()))
	tracks, err := src.PlaylistTracks(ctx, req.PlaylistID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch source playlist: %w", shared.ErrAPIRequest, err)
	}
	p.sendProgress(progress, foundSourceUpdate(req.PlaylistName, len(tracks)))

	title := PlaylistTitle(req.PlaylistName)
	p.sendProgress(progress, createPlaylistUpdate(models.Google.DisplayName(), title))
	playlistID, err := dst.CreatePlaylist(ctx, title, forwardDescription, forwardPrivacy)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create playlist: %w", shared.ErrAPIRequest, err)
	}
	p.sendProgress(progress, createdPlaylistUpdate(title, playlistID))

	result := &models.TransferResult{CreatedPlaylistID: playlistID, TotalSourceItems: len(tracks)}
	total := len(tracks)

	for i, track := range tracks {
		p.sendProgress(progress, matchTrackUpdate(i+1, total, track.Title, track.Artists))

		candidate, err := p.resolve(ctx, dst, matcher.BuildQuery(track))
		if err != nil {
			logger.Debug("search failed", "title", track.Title, "error", err)
			result.Fail(track)
			continue
		}
		if candidate.IsNone() {
			logger.Debug("no match", "title", track.Title)
			result.Fail(track)
			continue
		}

		if err := p.gate.Wait(ctx); err != nil {
			result.Fail(track)
			continue
		}
		if err := dst.AddVideo(ctx, playlistID, string(candidate)); err != nil {
			logger.Debug("insert failed", "title", track.Title, "video", candidate, "error", err)
			result.Fail(track)
			continue
		}
		result.SucceededCount++
	}

	logger.Info("transfer finished", "created", playlistID, "total", total, "succeeded", result.SucceededCount)
	p.sendProgress(progress, doneUpdate(result.SucceededCount, total))
	return result, nil
}

// TransferReverse copies up to the configured number of YouTube videos into a new private Spotify playlist.
//
// Titles are parsed as "Artist - Title" and searched on Spotify. The matched URIs are added in
// chunks of [TrackChunkSize]; the items of a failed chunk are appended to the result's failed items.
func (p *Pipeline) TransferReverse(ctx context.Context, src VideoSource, dst TrackSink, req Request, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: transfer clients not initialized", shared.ErrServiceUnavailable)
	}
	logger := shared.WithLogger(p.logger, "direction", "reverse", "playlist", req.PlaylistID)

	p.sendProgress(progress, fetchSourceUpdate(models.Google.DisplayName()))
	videos, err := src.PlaylistVideos(ctx, req.PlaylistID, p.reverseMaxItems)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch source playlist: %w", shared.ErrAPIRequest, err)
	}
	p.sendProgress(progress, foundSourceUpdate(req.PlaylistName, len(videos)))

	title := PlaylistTitle(req.PlaylistName)
	p.sendProgress(progress, createPlaylistUpdate(models.Spotify.DisplayName(), title))
	playlistID, err := dst.CreatePlaylist(ctx, title, "")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create playlist: %w", shared.ErrAPIRequest, err)
	}
	p.sendProgress(progress, createdPlaylistUpdate(title, playlistID))

	result := &models.TransferResult{CreatedPlaylistID: playlistID, TotalSourceItems: len(videos)}
	total := len(videos)

	uris := make([]string, 0, total)
	matched := make([]models.SourceTrack, 0, total)

	for i, v := range videos {
		at := matcher.ParseArtistTitle(v.Title)
		track := models.SourceTrack{Title: at.Title}
		if at.Artist != "" {
			track.Artists = []string{at.Artist}
		}
		p.sendProgress(progress, matchTrackUpdate(i+1, total, track.Title, track.Artists))

		candidate, err := p.resolve(ctx, dst, matcher.SpotifyQuery(at))
		if err != nil {
			logger.Debug("search failed", "video", v.ID, "error", err)
			result.Fail(track)
			continue
		}
		if candidate.IsNone() {
			logger.Debug("no match", "video", v.ID, "title", v.Title)
			result.Fail(track)
			continue
		}
		uris = append(uris, string(candidate))
		matched = append(matched, track)
	}

	p.sendProgress(progress, writeTracksUpdate(len(uris)))
	report := services.WriteBatches(ctx, uris, TrackChunkSize, func(ctx context.Context, chunk []string) error {
		if err := p.gate.Wait(ctx); err != nil {
			return err
		}
		return dst.AddTracks(ctx, playlistID, chunk)
	})
	for _, failed := range report.Failed {
		logger.Warn("chunk failed", "start", failed.Start, "end", failed.End, "error", failed.Err)
		for _, track := range matched[failed.Start:failed.End] {
			result.Fail(track)
		}
	}
	result.SucceededCount = report.Written

	logger.Info("transfer finished", "created", playlistID, "total", total, "succeeded", result.SucceededCount)
	p.sendProgress(progress, doneUpdate(result.SucceededCount, total))
	return result, nil
}

// resolve waits on the gate and runs the search for query.
func (p *Pipeline) resolve(ctx context.Context, s matcher.Searcher, query string) (models.Candidate, error) {
	if err := p.gate.Wait(ctx); err != nil {
		return models.NoCandidate, err
	}
	return matcher.Resolve(ctx, s, query)
}
