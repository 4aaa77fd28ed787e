package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/services"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultSampleSize  = 5
	DefaultConcurrency = 4
	DefaultCacheTTL    = 15 * time.Minute
)

// CategorySampler reads video categories from a YouTube account.
type CategorySampler interface {
	SampleVideoIDs(ctx context.Context, playlistID string, n int) ([]string, error)
	VideoCategories(ctx context.Context, ids []string) ([]string, error)
}

// ClassifierConfig tunes a [Classifier]. Zero values take the package defaults.
type ClassifierConfig struct {
	SampleSize  int
	Concurrency int
	CacheTTL    time.Duration
}

// Classifier decides whether YouTube playlists hold music.
//
// Results are cached per playlist id. Failed checks are not cached.
type Classifier struct {
	sampleSize  int
	concurrency int
	cache       *ttlcache.Cache[string, bool]
	logger      *log.Logger
}

// NewClassifier creates a Classifier. Call [Classifier.Stop] to release the cache's expiry loop.
func NewClassifier(cfg ClassifierConfig, logger *log.Logger) *Classifier {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, bool](cfg.CacheTTL),
		ttlcache.WithDisableTouchOnHit[string, bool](),
	)
	go cache.Start()

	return &Classifier{
		sampleSize:  cfg.SampleSize,
		concurrency: cfg.Concurrency,
		cache:       cache,
		logger:      shared.WithLogger(logger, "component", "classifier"),
	}
}

// Stop ends the cache's expiry loop.
func (c *Classifier) Stop() {
	c.cache.Stop()
}

// IsMusic reports whether at least half (rounded up) of the sampled videos are in the music category.
// A playlist with no sampled videos is not music.
func (c *Classifier) IsMusic(ctx context.Context, s CategorySampler, playlistID string) (bool, error) {
	if item := c.cache.Get(playlistID); item != nil {
		return item.Value(), nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ids, err := s.SampleVideoIDs(ctx, playlistID, c.sampleSize)
	if err != nil {
		return false, err
	}

	categories, err := s.VideoCategories(ctx, ids)
	if err != nil {
		return false, err
	}

	music := isMusicSample(categories)
	c.cache.Set(playlistID, music, ttlcache.DefaultTTL)
	return music, nil
}

// Classify checks every playlist concurrently and returns them in input order.
// A failed check is logged and counts as not music.
func (c *Classifier) Classify(ctx context.Context, s CategorySampler, playlists []models.PlaylistRef) []models.ClassifiedPlaylist {
	out := make([]models.ClassifiedPlaylist, len(playlists))
	sem := semaphore.NewWeighted(int64(c.concurrency))

	var wg sync.WaitGroup
	for i, pl := range playlists {
		out[i] = models.ClassifiedPlaylist{PlaylistRef: pl}

		if err := sem.Acquire(ctx, 1); err != nil {
			c.logger.Warn("classification cancelled", "playlist", pl.ID, "error", err)
			continue
		}

		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer sem.Release(1)

			music, err := c.IsMusic(ctx, s, id)
			if err != nil {
				c.logger.Warn("classification failed", "playlist", id, "error", err)
				return
			}
			out[i].IsMusic = music
		}(i, pl.ID)
	}
	wg.Wait()

	return out
}

// MusicOnly keeps the playlists classified as music.
func MusicOnly(playlists []models.ClassifiedPlaylist) []models.ClassifiedPlaylist {
	music := make([]models.ClassifiedPlaylist, 0, len(playlists))
	for _, pl := range playlists {
		if pl.IsMusic {
			music = append(music, pl)
		}
	}
	return music
}

func isMusicSample(categories []string) bool {
	n := len(categories)
	if n == 0 {
		return false
	}

	hits := 0
	for _, c := range categories {
		if c == services.MusicCategoryID {
			hits++
		}
	}
	return hits >= (n+1)/2
}
