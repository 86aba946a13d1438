package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/albumranker/internal/cipher"
	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/repositories"
	"github.com/desertthunder/albumranker/internal/shared"
	_ "github.com/mattn/go-sqlite3"
)

// fakeAuthServer is a test double for [AuthorizationServer] with
// programmable results and call counting.
type fakeAuthServer struct {
	exchangeCreds models.SpotifyCredentials
	exchangeErr   error
	refreshCreds  models.SpotifyCredentials
	refreshErr    error
	refreshCalls  int
}

func (f *fakeAuthServer) AuthorizeURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (f *fakeAuthServer) ExchangeCode(ctx context.Context, code string) (models.SpotifyCredentials, error) {
	return f.exchangeCreds, f.exchangeErr
}

func (f *fakeAuthServer) Refresh(ctx context.Context, refreshToken string) (models.SpotifyCredentials, error) {
	f.refreshCalls++
	return f.refreshCreds, f.refreshErr
}

func setupAuthTest(t *testing.T) (*sql.DB, *repositories.CredentialRepository, string) {
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
	user, err := users.Register("auth@example.com", "password123")
	if err != nil {
		t.Fatalf("Failed to register user: %v", err)
	}

	c, err := cipher.New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	return db, repositories.NewCredentialRepository(db, c), user.ID()
}

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func freshCreds(access string) models.SpotifyCredentials {
	return models.SpotifyCredentials{
		AccessToken:  access,
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(55 * time.Minute),
	}
}

func staleCreds(access string) models.SpotifyCredentials {
	return models.SpotifyCredentials{
		AccessToken:  access,
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
}

func TestCompleteAuthorization(t *testing.T) {
	t.Run("StoresCredentials", func(t *testing.T) {
		_, credRepo, userID := setupAuthTest(t)
		server := &fakeAuthServer{exchangeCreds: freshCreds("access-1")}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		if err := auth.CompleteAuthorization(context.Background(), userID, "the-code"); err != nil {
			t.Fatalf("CompleteAuthorization failed: %v", err)
		}

		stored, err := credRepo.Get(userID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored == nil || stored.AccessToken != "access-1" {
			t.Errorf("Expected stored access token, got %+v", stored)
		}
	})

	t.Run("ExchangeFailureStoresNothing", func(t *testing.T) {
		_, credRepo, userID := setupAuthTest(t)
		server := &fakeAuthServer{exchangeErr: shared.ErrAuthorizationFailed}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		err := auth.CompleteAuthorization(context.Background(), userID, "bad-code")
		if !errors.Is(err, shared.ErrAuthorizationFailed) {
			t.Fatalf("Expected ErrAuthorizationFailed, got %v", err)
		}

		stored, err := credRepo.Get(userID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored != nil {
			t.Errorf("Expected no stored credentials, got %+v", stored)
		}
	})

	t.Run("ReauthorizationReplacesTokens", func(t *testing.T) {
		_, credRepo, userID := setupAuthTest(t)
		server := &fakeAuthServer{exchangeCreds: freshCreds("access-1")}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		if err := auth.CompleteAuthorization(context.Background(), userID, "code-1"); err != nil {
			t.Fatalf("First authorization failed: %v", err)
		}

		server.exchangeCreds = freshCreds("access-2")
		if err := auth.CompleteAuthorization(context.Background(), userID, "code-2"); err != nil {
			t.Fatalf("Second authorization failed: %v", err)
		}

		stored, _ := credRepo.Get(userID)
		if stored == nil || stored.AccessToken != "access-2" {
			t.Errorf("Expected replaced token, got %+v", stored)
		}
	})
}

func TestEnsureValid(t *testing.T) {
	t.Run("FreshCredentialsSkipNetwork", func(t *testing.T) {
		_, credRepo, _ := setupAuthTest(t)
		server := &fakeAuthServer{}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		creds := freshCreds("access-1")
		got, refreshed, err := auth.EnsureValid(context.Background(), creds)
		if err != nil {
			t.Fatalf("EnsureValid failed: %v", err)
		}
		if refreshed {
			t.Error("Expected no refresh for fresh credentials")
		}
		if server.refreshCalls != 0 {
			t.Errorf("Expected zero refresh calls, got %d", server.refreshCalls)
		}
		if got.AccessToken != "access-1" {
			t.Errorf("Expected credentials returned unchanged, got %+v", got)
		}
	})

	t.Run("ExpiredCredentialsRefreshOnce", func(t *testing.T) {
		_, credRepo, _ := setupAuthTest(t)
		server := &fakeAuthServer{refreshCreds: models.SpotifyCredentials{
			AccessToken: "access-2",
			ExpiresAt:   time.Now().Add(55 * time.Minute),
		}}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		got, refreshed, err := auth.EnsureValid(context.Background(), staleCreds("access-1"))
		if err != nil {
			t.Fatalf("EnsureValid failed: %v", err)
		}
		if !refreshed {
			t.Error("Expected refresh for expired credentials")
		}
		if server.refreshCalls != 1 {
			t.Errorf("Expected exactly one refresh call, got %d", server.refreshCalls)
		}
		if got.AccessToken != "access-2" {
			t.Errorf("Expected refreshed access token, got %s", got.AccessToken)
		}
		if got.RefreshToken != "refresh-token" {
			t.Errorf("Expected refresh token preserved, got %q", got.RefreshToken)
		}
	})

	t.Run("RotatedRefreshTokenKept", func(t *testing.T) {
		_, credRepo, _ := setupAuthTest(t)
		server := &fakeAuthServer{refreshCreds: models.SpotifyCredentials{
			AccessToken:  "access-2",
			RefreshToken: "rotated-token",
			ExpiresAt:    time.Now().Add(55 * time.Minute),
		}}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		got, _, err := auth.EnsureValid(context.Background(), staleCreds("access-1"))
		if err != nil {
			t.Fatalf("EnsureValid failed: %v", err)
		}
		if got.RefreshToken != "rotated-token" {
			t.Errorf("Expected rotated refresh token, got %q", got.RefreshToken)
		}
	})

	t.Run("RefreshFailurePropagates", func(t *testing.T) {
		_, credRepo, _ := setupAuthTest(t)
		server := &fakeAuthServer{refreshErr: shared.ErrRefreshFailed}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		_, _, err := auth.EnsureValid(context.Background(), staleCreds("access-1"))
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("Expected ErrRefreshFailed, got %v", err)
		}
	})
}

func TestClientFor(t *testing.T) {
	t.Run("NotLinkedReturnsNilNil", func(t *testing.T) {
		_, credRepo, userID := setupAuthTest(t)
		auth := NewSpotifyAuth(credRepo, &fakeAuthServer{}, testLogger())

		client, err := auth.ClientFor(context.Background(), userID)
		if err != nil {
			t.Fatalf("Expected nil error for unlinked user, got %v", err)
		}
		if client != nil {
			t.Errorf("Expected nil client for unlinked user, got %v", client)
		}
	})

	t.Run("FreshCredentialsYieldClient", func(t *testing.T) {
		_, credRepo, userID := setupAuthTest(t)
		if err := credRepo.Save(userID, freshCreds("access-1")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		server := &fakeAuthServer{}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		client, err := auth.ClientFor(context.Background(), userID)
		if err != nil {
			t.Fatalf("ClientFor failed: %v", err)
		}
		if client == nil {
			t.Fatal("Expected client, got nil")
		}
		if server.refreshCalls != 0 {
			t.Errorf("Expected zero refresh calls, got %d", server.refreshCalls)
		}
	})

	t.Run("ExpiredCredentialsRefreshAndPersist", func(t *testing.T) {
		_, credRepo, userID := setupAuthTest(t)
		if err := credRepo.Save(userID, staleCreds("access-1")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		future := time.Now().Add(55 * time.Minute).Truncate(time.Second).UTC()
		server := &fakeAuthServer{refreshCreds: models.SpotifyCredentials{
			AccessToken: "access-2",
			ExpiresAt:   future,
		}}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		client, err := auth.ClientFor(context.Background(), userID)
		if err != nil {
			t.Fatalf("ClientFor failed: %v", err)
		}
		if client == nil {
			t.Fatal("Expected client, got nil")
		}

		stored, err := credRepo.Get(userID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored.AccessToken != "access-2" {
			t.Errorf("Expected refreshed token persisted, got %s", stored.AccessToken)
		}
		if stored.RefreshToken != "refresh-token" {
			t.Errorf("Expected refresh token preserved in store, got %q", stored.RefreshToken)
		}
	})

	t.Run("UnrotatedRefreshTokenKeepsCiphertext", func(t *testing.T) {
		db, credRepo, userID := setupAuthTest(t)
		if err := credRepo.Save(userID, staleCreds("access-1")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		var before string
		if err := db.QueryRow(`SELECT refresh_token FROM spotify_credentials WHERE user_id = ?`, userID).Scan(&before); err != nil {
			t.Fatalf("Failed to read stored refresh token: %v", err)
		}

		server := &fakeAuthServer{refreshCreds: models.SpotifyCredentials{
			AccessToken:  "access-2",
			RefreshToken: "refresh-token",
			ExpiresAt:    time.Now().Add(55 * time.Minute).UTC(),
		}}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		if _, err := auth.ClientFor(context.Background(), userID); err != nil {
			t.Fatalf("ClientFor failed: %v", err)
		}

		var after string
		if err := db.QueryRow(`SELECT refresh_token FROM spotify_credentials WHERE user_id = ?`, userID).Scan(&after); err != nil {
			t.Fatalf("Failed to read stored refresh token: %v", err)
		}

		// The random-IV cipher produces new ciphertext on every encryption,
		// so an unchanged column proves the token was not re-encrypted.
		if after != before {
			t.Error("Expected unrotated refresh token ciphertext to be untouched")
		}
	})

	t.Run("RotatedRefreshTokenPersisted", func(t *testing.T) {
		db, credRepo, userID := setupAuthTest(t)
		if err := credRepo.Save(userID, staleCreds("access-1")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		var before string
		if err := db.QueryRow(`SELECT refresh_token FROM spotify_credentials WHERE user_id = ?`, userID).Scan(&before); err != nil {
			t.Fatalf("Failed to read stored refresh token: %v", err)
		}

		server := &fakeAuthServer{refreshCreds: models.SpotifyCredentials{
			AccessToken:  "access-2",
			RefreshToken: "rotated-token",
			ExpiresAt:    time.Now().Add(55 * time.Minute).UTC(),
		}}
		auth := NewSpotifyAuth(credRepo, server, testLogger())

		if _, err := auth.ClientFor(context.Background(), userID); err != nil {
			t.Fatalf("ClientFor failed: %v", err)
		}

		var after string
		if err := db.QueryRow(`SELECT refresh_token FROM spotify_credentials WHERE user_id = ?`, userID).Scan(&after); err != nil {
			t.Fatalf("Failed to read stored refresh token: %v", err)
		}
		if after == before {
			t.Error("Expected rotated refresh token to be re-encrypted")
		}

		stored, err := credRepo.Get(userID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if stored.RefreshToken != "rotated-token" {
			t.Errorf("Expected rotated token persisted, got %q", stored.RefreshToken)
		}
	})
}

func TestIsLinkedAndUnlink(t *testing.T) {
	_, credRepo, userID := setupAuthTest(t)
	auth := NewSpotifyAuth(credRepo, &fakeAuthServer{}, testLogger())

	linked, err := auth.IsLinked(userID)
	if err != nil {
		t.Fatalf("IsLinked failed: %v", err)
	}
	if linked {
		t.Error("Expected not linked before save")
	}

	if err := credRepo.Save(userID, freshCreds("access-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	linked, _ = auth.IsLinked(userID)
	if !linked {
		t.Error("Expected linked after save")
	}

	if err := auth.Unlink(userID); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}

	linked, _ = auth.IsLinked(userID)
	if linked {
		t.Error("Expected not linked after unlink")
	}

	if err := auth.Unlink(userID); !errors.Is(err, shared.ErrNotLinked) {
		t.Errorf("Expected ErrNotLinked on second unlink, got %v", err)
	}
}
