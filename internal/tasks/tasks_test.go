package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/desertthunder/albumranker/internal/repositories"
	"github.com/desertthunder/albumranker/internal/services"
	"github.com/desertthunder/albumranker/internal/shared"
	_ "github.com/mattn/go-sqlite3"
)

// fakeCatalogClient serves saved albums from a fixed slice with real
// pagination semantics.
type fakeCatalogClient struct {
	albums []services.SpotifySavedAlbum
	calls  int
}

func (f *fakeCatalogClient) SavedAlbums(ctx context.Context, limit, offset int) (*services.SpotifyPaginatedAlbums, error) {
	f.calls++

	end := offset + limit
	if end > len(f.albums) {
		end = len(f.albums)
	}
	items := []services.SpotifySavedAlbum{}
	if offset < len(f.albums) {
		items = f.albums[offset:end]
	}

	return &services.SpotifyPaginatedAlbums{
		Items:  items,
		Total:  len(f.albums),
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (f *fakeCatalogClient) UserProfile(ctx context.Context) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: "fake-user"}, nil
}

// fakeClientProvider returns a fixed client, or nil to simulate an
// unlinked account.
type fakeClientProvider struct {
	client services.CatalogClient
	err    error
}

func (f *fakeClientProvider) ClientFor(ctx context.Context, userID string) (services.CatalogClient, error) {
	return f.client, f.err
}

// blockingProvider parks ClientFor until released so a second sync can be
// attempted while the first is still running.
type blockingProvider struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProvider) ClientFor(ctx context.Context, userID string) (services.CatalogClient, error) {
	close(b.entered)
	<-b.release
	return nil, nil
}

func savedAlbum(id, name, artist, releaseDate string) services.SpotifySavedAlbum {
	return services.SpotifySavedAlbum{
		Album: services.SpotifyAlbum{
			ID:          id,
			Name:        name,
			ReleaseDate: releaseDate,
			URI:         "spotify:album:" + id,
			Artists:     []services.SpotifyArtist{{Name: artist}},
		},
	}
}

func setupSyncTest(t *testing.T) (*sql.DB, *repositories.AlbumRepository, string) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	users := repositories.NewUserRepository(db)
	user, err := users.Register("sync@example.com", "password123")
	if err != nil {
		t.Fatalf("Failed to register user: %v", err)
	}

	return db, repositories.NewAlbumRepository(db), user.ID()
}

func newTestEngine(provider ClientProvider, albums *repositories.AlbumRepository, pageSize int) *CatalogEngine {
	return NewCatalogEngine(provider, albums, shared.SyncConfig{
		PageSize:  pageSize,
		RateLimit: 1000,
	}, shared.NewLogger(io.Discard))
}

func TestSyncAll(t *testing.T) {
	t.Run("NotLinked", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)
		engine := newTestEngine(&fakeClientProvider{}, albums, 50)

		_, err := engine.SyncAll(context.Background(), userID, nil)
		if !errors.Is(err, shared.ErrNotLinked) {
			t.Fatalf("Expected ErrNotLinked, got %v", err)
		}
	})

	t.Run("ImportsAllPages", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		var saved []services.SpotifySavedAlbum
		for i := 0; i < 5; i++ {
			saved = append(saved, savedAlbum(
				fmt.Sprintf("album-%d", i),
				fmt.Sprintf("Album %d", i),
				"Artist",
				"2021-05-21",
			))
		}

		client := &fakeCatalogClient{albums: saved}
		engine := newTestEngine(&fakeClientProvider{client: client}, albums, 2)

		result, err := engine.SyncAll(context.Background(), userID, nil)
		if err != nil {
			t.Fatalf("SyncAll failed: %v", err)
		}

		if result.Total != 5 || result.Synced != 5 || result.Skipped != 0 {
			t.Errorf("Unexpected result: %+v", result)
		}
		if result.Pages != 3 {
			t.Errorf("Expected 3 pages for 5 albums at page size 2, got %d", result.Pages)
		}
		if client.calls != 3 {
			t.Errorf("Expected 3 fetches, got %d", client.calls)
		}

		count, err := albums.Count(userID)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 5 {
			t.Errorf("Expected 5 albums in catalog, got %d", count)
		}
	})

	t.Run("NewAlbumsAppendedWithBatchRank", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		client := &fakeCatalogClient{albums: []services.SpotifySavedAlbum{
			savedAlbum("a1", "First", "Artist", "2021-01-01"),
			savedAlbum("a2", "Second", "Artist", "2021-02-01"),
			savedAlbum("a3", "Third", "Artist", "2021-03-01"),
		}}
		engine := newTestEngine(&fakeClientProvider{client: client}, albums, 50)

		if _, err := engine.SyncAll(context.Background(), userID, nil); err != nil {
			t.Fatalf("SyncAll failed: %v", err)
		}

		stored, err := albums.ListByYear(userID, "2021")
		if err != nil {
			t.Fatalf("ListByYear failed: %v", err)
		}
		for _, album := range stored {
			if album.Rank() == nil || *album.Rank() != 3 {
				t.Errorf("Expected append rank 3 for %s, got %v", album.SpotifyID(), album.Rank())
			}
		}
	})

	t.Run("ResyncPreservesRankAndHidden", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		client := &fakeCatalogClient{albums: []services.SpotifySavedAlbum{
			savedAlbum("a1", "Original Title", "Artist", "2021-01-01"),
			savedAlbum("a2", "Second", "Artist", "2021-02-01"),
		}}
		engine := newTestEngine(&fakeClientProvider{client: client}, albums, 50)

		if _, err := engine.SyncAll(context.Background(), userID, nil); err != nil {
			t.Fatalf("First sync failed: %v", err)
		}

		if err := albums.SaveRanking(userID, []repositories.RankEntry{
			{SpotifyID: "a2"},
			{SpotifyID: "a1", Hidden: true},
		}); err != nil {
			t.Fatalf("SaveRanking failed: %v", err)
		}

		// Remote metadata changed; local ordering must survive.
		client.albums[0] = savedAlbum("a1", "Remastered Title", "Artist", "2021-01-01")

		if _, err := engine.SyncAll(context.Background(), userID, nil); err != nil {
			t.Fatalf("Second sync failed: %v", err)
		}

		a1, err := albums.GetBySpotifyID(userID, "a1")
		if err != nil {
			t.Fatalf("GetBySpotifyID failed: %v", err)
		}
		if a1.Name() != "Remastered Title" {
			t.Errorf("Expected metadata refreshed, got %q", a1.Name())
		}
		if a1.Rank() == nil || *a1.Rank() != 1 {
			t.Errorf("Expected rank 1 preserved, got %v", a1.Rank())
		}
		if !a1.Hidden() {
			t.Error("Expected hidden flag preserved")
		}

		a2, _ := albums.GetBySpotifyID(userID, "a2")
		if a2.Rank() == nil || *a2.Rank() != 0 {
			t.Errorf("Expected rank 0 preserved, got %v", a2.Rank())
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		client := &fakeCatalogClient{albums: []services.SpotifySavedAlbum{
			savedAlbum("a1", "First", "Artist", "2021-01-01"),
			savedAlbum("a2", "Second", "Artist", "2021-02-01"),
		}}
		engine := newTestEngine(&fakeClientProvider{client: client}, albums, 50)

		for i := 0; i < 3; i++ {
			if _, err := engine.SyncAll(context.Background(), userID, nil); err != nil {
				t.Fatalf("Sync %d failed: %v", i+1, err)
			}
		}

		count, _ := albums.Count(userID)
		if count != 2 {
			t.Errorf("Expected 2 albums after repeated syncs, got %d", count)
		}
	})

	t.Run("SkipsUnparseableItems", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		client := &fakeCatalogClient{albums: []services.SpotifySavedAlbum{
			savedAlbum("good", "Good Album", "Artist", "2021-01-01"),
			savedAlbum("bad", "Bad Album", "Artist", "not-a-date"),
		}}
		engine := newTestEngine(&fakeClientProvider{client: client}, albums, 50)

		result, err := engine.SyncAll(context.Background(), userID, nil)
		if err != nil {
			t.Fatalf("SyncAll failed: %v", err)
		}

		if result.Synced != 1 || result.Skipped != 1 {
			t.Errorf("Expected 1 synced and 1 skipped, got %+v", result)
		}

		count, _ := albums.Count(userID)
		if count != 1 {
			t.Errorf("Expected 1 album in catalog, got %d", count)
		}
	})

	t.Run("ConcurrentSyncRejected", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		provider := &blockingProvider{
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		engine := newTestEngine(provider, albums, 50)

		done := make(chan error, 1)
		go func() {
			_, err := engine.SyncAll(context.Background(), userID, nil)
			done <- err
		}()

		<-provider.entered

		_, err := engine.SyncAll(context.Background(), userID, nil)
		if !errors.Is(err, shared.ErrSyncInProgress) {
			t.Errorf("Expected ErrSyncInProgress, got %v", err)
		}

		close(provider.release)
		if err := <-done; !errors.Is(err, shared.ErrNotLinked) {
			t.Errorf("Expected ErrNotLinked from blocked sync, got %v", err)
		}
	})

	t.Run("ProgressUpdatesEmitted", func(t *testing.T) {
		_, albums, userID := setupSyncTest(t)

		client := &fakeCatalogClient{albums: []services.SpotifySavedAlbum{
			savedAlbum("a1", "First", "Artist", "2021-01-01"),
		}}
		engine := newTestEngine(&fakeClientProvider{client: client}, albums, 50)

		progress := make(chan ProgressUpdate, 16)
		if _, err := engine.SyncAll(context.Background(), userID, progress); err != nil {
			t.Fatalf("SyncAll failed: %v", err)
		}
		close(progress)

		var sawFetch, sawDone bool
		for update := range progress {
			switch update.Phase {
			case FetchCatalog:
				sawFetch = true
			case SyncDone:
				sawDone = true
			}
		}
		if !sawFetch || !sawDone {
			t.Errorf("Expected fetch and done updates, fetch=%v done=%v", sawFetch, sawDone)
		}
	})
}
