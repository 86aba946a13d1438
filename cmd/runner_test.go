package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/shared"
	tu "github.com/desertthunder/albumranker/internal/testing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/urfave/cli/v3"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

type fakeAuthServer struct {
	authURL string
	creds   models.SpotifyCredentials
	err     error
}

func (f *fakeAuthServer) AuthorizeURL(state string) string {
	return f.authURL + "?state=" + state
}

func (f *fakeAuthServer) ExchangeCode(ctx context.Context, code string) (models.SpotifyCredentials, error) {
	return f.creds, f.err
}

func (f *fakeAuthServer) Refresh(ctx context.Context, refreshToken string) (models.SpotifyCredentials, error) {
	return f.creds, f.err
}

func testConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Security.SigningSecret = testSigningSecret
	config.Database.Path = ":memory:"
	return config
}

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     testConfig(),
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
		DB:         db,
		AuthServer: &fakeAuthServer{authURL: "https://accounts.spotify.com/authorize"},
	})

	return runner, output
}

func runCLI(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "albumranker",
		Commands: runner.register(),
	}
	return app.Run(context.Background(), append([]string{"albumranker"}, args...))
}

func seedAlbum(t *testing.T, runner *Runner, userID, spotifyID, name string, year int) {
	t.Helper()
	album := models.Album{
		SpotifyID:   spotifyID,
		Name:        name,
		Artist:      "Test Artist",
		ReleaseDate: time.Date(year, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := runner.albums.Upsert(userID, album, 1); err != nil {
		t.Fatalf("failed to seed album: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := testConfig()
			logger := shared.NewLogger(io.Discard)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/tmp/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/tmp/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with database wires repositories and services", func(t *testing.T) {
			runner, _ := newTestRunner(t)

			if runner.users == nil || runner.albums == nil || runner.credentials == nil {
				t.Error("expected repositories to be wired")
			}
			if runner.auth == nil {
				t.Error("expected spotify auth manager to be wired")
			}
			if runner.engine == nil {
				t.Error("expected catalog engine to be wired")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		expected := []string{"setup", "serve", "account", "spotify", "sync", "albums", "export", "rank"}
		if len(commands) != len(expected) {
			t.Fatalf("expected %d commands, got %d", len(expected), len(commands))
		}
		for i, name := range expected {
			if commands[i].Name != name {
				t.Errorf("expected command %d to be %s, got %s", i, name, commands[i].Name)
			}
		}
	})
}

func TestAccountCommands(t *testing.T) {
	t.Run("create registers an account", func(t *testing.T) {
		runner, output := newTestRunner(t)

		err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "✓ Account created for lou@example.com") {
			t.Errorf("expected confirmation, got %q", output.String())
		}

		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("expected user to exist, got %v", err)
		}
		if user.PasswordHash() == "hunter22" {
			t.Error("expected password to be hashed")
		}
	})

	t.Run("create rejects duplicate email", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("first create failed: %v", err)
		}

		err := runCLI(t, runner, "account", "create", "--password", "other", "lou@example.com")
		if !errors.Is(err, shared.ErrUserExists) {
			t.Errorf("expected ErrUserExists, got %v", err)
		}
	})

	t.Run("list shows accounts", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "account", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "lou@example.com") {
			t.Errorf("expected account in listing, got %q", output.String())
		}
	})

	t.Run("theme toggles color scheme", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "account", "theme", "--email", "lou@example.com"); err != nil {
			t.Fatalf("theme failed: %v", err)
		}
		if !strings.Contains(output.String(), models.ColorSchemeLight) {
			t.Errorf("expected light scheme after toggle, got %q", output.String())
		}
	})

	t.Run("unknown email fails", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runCLI(t, runner, "account", "theme", "--email", "nobody@example.com")
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("status reports unlinked account", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "spotify", "status", "--email", "lou@example.com"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "✗ Not linked") {
			t.Errorf("expected unlinked status, got %q", output.String())
		}
	})

	t.Run("status reports linked account", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}

		creds := models.SpotifyCredentials{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    time.Now().Add(time.Hour).UTC(),
		}
		if err := runner.auth.Link(user.ID(), creds); err != nil {
			t.Fatalf("link failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "spotify", "status", "--email", "lou@example.com"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓ Linked") {
			t.Errorf("expected linked status, got %q", output.String())
		}
	})

	t.Run("unlink removes credentials", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}

		creds := models.SpotifyCredentials{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresAt:    time.Now().Add(time.Hour).UTC(),
		}
		if err := runner.auth.Link(user.ID(), creds); err != nil {
			t.Fatalf("link failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "spotify", "unlink", "--email", "lou@example.com"); err != nil {
			t.Fatalf("unlink failed: %v", err)
		}

		linked, err := runner.auth.IsLinked(user.ID())
		if err != nil {
			t.Fatalf("IsLinked failed: %v", err)
		}
		if linked {
			t.Error("expected account to be unlinked")
		}
	})

	t.Run("unlink without link fails", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		err := runCLI(t, runner, "spotify", "unlink", "--email", "lou@example.com")
		if !errors.Is(err, shared.ErrNotLinked) {
			t.Errorf("expected ErrNotLinked, got %v", err)
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("without link fails", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		err := runCLI(t, runner, "sync", "--email", "lou@example.com")
		if !errors.Is(err, shared.ErrNotLinked) {
			t.Errorf("expected ErrNotLinked, got %v", err)
		}
	})
}

func TestAlbumsCommands(t *testing.T) {
	t.Run("list with no albums prints hint", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "albums", "list", "--email", "lou@example.com", "--year", "2021"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "No albums synced for 2021") {
			t.Errorf("expected empty message, got %q", output.String())
		}
	})

	t.Run("list shows seeded albums", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		seedAlbum(t, runner, user.ID(), "album-1", "In Rainbows", 2007)
		output.Reset()

		if err := runCLI(t, runner, "albums", "list", "--email", "lou@example.com", "--year", "2007"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "In Rainbows") {
			t.Errorf("expected album in listing, got %q", output.String())
		}
	})

	t.Run("years lists release years", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		seedAlbum(t, runner, user.ID(), "album-1", "In Rainbows", 2007)
		seedAlbum(t, runner, user.ID(), "album-2", "Blue Rev", 2022)
		output.Reset()

		if err := runCLI(t, runner, "albums", "years", "--email", "lou@example.com"); err != nil {
			t.Fatalf("years failed: %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "2022") || !strings.Contains(result, "2007") {
			t.Errorf("expected both years listed, got %q", result)
		}
		if strings.Index(result, "2022") > strings.Index(result, "2007") {
			t.Errorf("expected newest year first, got %q", result)
		}
	})

	t.Run("years offers current year before any sync", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "albums", "years", "--email", "lou@example.com"); err != nil {
			t.Fatalf("years failed: %v", err)
		}

		current := strconv.Itoa(time.Now().Year())
		if !strings.Contains(output.String(), current) {
			t.Errorf("expected current year %s listed, got %q", current, output.String())
		}
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("csv writes albums and metadata files", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		seedAlbum(t, runner, user.ID(), "album-1", "In Rainbows", 2007)
		output.Reset()

		base := filepath.Join(t.TempDir(), "2007")
		if err := runCLI(t, runner, "export", "--email", "lou@example.com", "--year", "2007", "--format", "csv", "--output", base); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		tu.AssertFileExists(t, base+"_albums.csv")
		tu.AssertFileExists(t, base+"_metadata.json")

		content := tu.MustReadFile(t, base+"_albums.csv")
		if !strings.Contains(content, "In Rainbows") {
			t.Errorf("expected album row in CSV, got %q", content)
		}
	})

	t.Run("markdown writes README", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		seedAlbum(t, runner, user.ID(), "album-1", "In Rainbows", 2007)
		output.Reset()

		dir := filepath.Join(t.TempDir(), "2007")
		if err := runCLI(t, runner, "export", "--email", "lou@example.com", "--year", "2007", "--format", "markdown", "--output", dir); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "README.md"))
	})

	t.Run("unsupported format fails", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		user, err := runner.users.GetByEmail("lou@example.com")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		seedAlbum(t, runner, user.ID(), "album-1", "In Rainbows", 2007)

		err = runCLI(t, runner, "export", "--email", "lou@example.com", "--year", "2007", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty year is a no-op", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runCLI(t, runner, "account", "create", "--password", "hunter22", "lou@example.com"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		output.Reset()

		if err := runCLI(t, runner, "export", "--email", "lou@example.com", "--year", "1999"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(output.String(), "nothing to export") {
			t.Errorf("expected no-op message, got %q", output.String())
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes starter file", func(t *testing.T) {
		runner, output := newTestRunner(t)

		path := filepath.Join(t.TempDir(), "config.toml")
		if err := runCLI(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "✓ Configuration written") {
			t.Errorf("expected confirmation, got %q", output.String())
		}
	})

	t.Run("config refuses to overwrite", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		path := filepath.Join(t.TempDir(), "config.toml")
		if err := runCLI(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("first setup config failed: %v", err)
		}

		if err := runCLI(t, runner, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})
}
