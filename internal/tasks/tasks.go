package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/albumranker/internal/repositories"
	"github.com/desertthunder/albumranker/internal/services"
	"github.com/desertthunder/albumranker/internal/shared"
	"golang.org/x/time/rate"
)

// SyncResult summarizes a completed catalog sync.
type SyncResult struct {
	Total   int `json:"total"`   // Albums reported by Spotify
	Synced  int `json:"synced"`  // Albums reconciled into the catalog
	Skipped int `json:"skipped"` // Albums dropped due to per-item errors
	Pages   int `json:"pages"`   // Pages fetched
}

// ClientProvider yields an authenticated API client for a user.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type ClientProvider interface {
	ClientFor(ctx context.Context, userID string) (services.CatalogClient, error)
}

// CatalogEngine reconciles a user's Spotify library into the local catalog.
//
// At most one sync runs per user at a time; concurrent attempts fail fast
// with [shared.ErrSyncInProgress].
type CatalogEngine struct {
	auth     ClientProvider
	albums   *repositories.AlbumRepository
	limiter  *rate.Limiter
	pageSize int
	logger   *log.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCatalogEngine creates a CatalogEngine with the provided dependencies.
// pageSize is clamped to Spotify's maximum of 50 items per page.
func NewCatalogEngine(auth ClientProvider, albums *repositories.AlbumRepository, cfg shared.SyncConfig, logger *log.Logger) *CatalogEngine {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5.0
	}

	return &CatalogEngine{
		auth:     auth,
		albums:   albums,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), 1),
		pageSize: pageSize,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *CatalogEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// acquire marks userID as syncing, failing when a sync is already running.
func (e *CatalogEngine) acquire(userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.inFlight[userID]; running {
		return shared.ErrSyncInProgress
	}
	e.inFlight[userID] = struct{}{}
	return nil
}

func (e *CatalogEngine) release(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, userID)
}

// SyncAll fetches every page of the user's saved albums and upserts each one.
//
// Existing albums keep their rank and hidden flag; new albums are created
// with rank set to the batch total so they sort behind every ranked album.
// Individual album failures are logged and skipped rather than aborting the
// whole sync.
func (e *CatalogEngine) SyncAll(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if err := e.acquire(userID); err != nil {
		return nil, err
	}
	defer e.release(userID)

	client, err := e.auth.ClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, shared.ErrNotLinked
	}

	e.sendProgress(progress, fetchPageUpdate(1, 1))

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	first, err := client.SavedAlbums(ctx, e.pageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved albums: %w", err)
	}

	total := first.Total
	pages := (total + e.pageSize - 1) / e.pageSize

	result := &SyncResult{Total: total, Pages: pages}

	e.logger.Info("starting catalog sync", "user_id", userID, "total", total, "pages", pages)

	step := 0
	for page := 0; page < pages; page++ {
		batch := first
		if page > 0 {
			e.sendProgress(progress, fetchPageUpdate(page+1, pages))

			if err := e.limiter.Wait(ctx); err != nil {
				return result, err
			}

			batch, err = client.SavedAlbums(ctx, e.pageSize, page*e.pageSize)
			if err != nil {
				return result, fmt.Errorf("failed to fetch saved albums page %d: %w", page+1, err)
			}
		}

		for _, item := range batch.Items {
			step++
			e.sendProgress(progress, reconcileUpdate(step, total, item.Album.Name, artistSummary(item.Album)))

			album, err := services.AlbumFromSpotify(item.Album)
			if err != nil {
				e.logger.Warn("skipping album", "user_id", userID, "spotify_id", item.Album.ID, "error", err)
				e.sendProgress(progress, skippedUpdate(step, total, item.Album.ID, err))
				result.Skipped++
				continue
			}

			if err := e.albums.Upsert(userID, album, total); err != nil {
				e.logger.Warn("failed to upsert album", "user_id", userID, "spotify_id", album.SpotifyID, "error", err)
				e.sendProgress(progress, skippedUpdate(step, total, album.SpotifyID, err))
				result.Skipped++
				continue
			}

			result.Synced++
		}
	}

	e.logger.Info("catalog sync complete", "user_id", userID, "synced", result.Synced, "skipped", result.Skipped)
	e.sendProgress(progress, syncDoneUpdate(result))

	return result, nil
}

func artistSummary(album services.SpotifyAlbum) string {
	if len(album.Artists) == 0 {
		return "Unknown Artist"
	}
	return album.Artists[0].Name
}
