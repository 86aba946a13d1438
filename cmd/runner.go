package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/albumranker/internal/cipher"
	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/repositories"
	"github.com/desertthunder/albumranker/internal/services"
	"github.com/desertthunder/albumranker/internal/shared"
	"github.com/desertthunder/albumranker/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db          *sql.DB
	ownsDB      bool
	users       *repositories.UserRepository
	albums      *repositories.AlbumRepository
	credentials *repositories.CredentialRepository
	authServer  services.AuthorizationServer
	auth        *services.SpotifyAuth
	engine      *tasks.CatalogEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB and AuthServer exist for tests; when left nil the runner opens the
// configured database and builds a real Spotify client on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	AuthServer services.AuthorizationServer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		authServer: opts.AuthServer,
	}

	if opts.DB != nil {
		if err := r.attach(opts.DB); err != nil {
			r.logger.Warn("failed to wire dependencies", "error", err)
		}
	}

	return r
}

// SetLogger replaces the runner's logger, used when the TUI takes over stderr.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database handle if the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		return r.db.Close()
	}
	return nil
}

// bootstrap opens the configured database, runs pending migrations, and wires
// repositories and services. Safe to call more than once.
func (r *Runner) bootstrap() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.ownsDB = true
	return r.attach(db)
}

// attach builds repositories and services on top of an open database handle.
func (r *Runner) attach(db *sql.DB) error {
	ciph, err := cipher.New(r.config.Security.SigningSecret)
	if err != nil {
		return fmt.Errorf("invalid signing secret: %w", err)
	}

	r.db = db
	r.users = repositories.NewUserRepository(db)
	r.albums = repositories.NewAlbumRepository(db)
	r.credentials = repositories.NewCredentialRepository(db, ciph)

	if r.authServer == nil && r.config.Spotify.ClientID != "" && r.config.Spotify.ClientSecret != "" {
		svc, err := services.NewSpotifyService(r.config.Spotify)
		if err != nil {
			r.logger.Warn("spotify client unavailable", "error", err)
		} else {
			r.authServer = svc
		}
	}

	if r.authServer != nil {
		r.auth = services.NewSpotifyAuth(r.credentials, r.authServer, r.logger)
		r.engine = tasks.NewCatalogEngine(r.auth, r.albums, r.config.Sync, r.logger)
	}

	return nil
}

// requireSpotify guards commands that talk to the Spotify API.
func (r *Runner) requireSpotify() error {
	if r.auth == nil {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set in %s", shared.ErrMissingConfig, r.configFile())
	}
	return nil
}

func (r *Runner) configFile() string {
	if r.configPath != "" {
		return r.configPath
	}
	return "config.toml"
}

// resolveUser looks up the account named by the --email flag.
func (r *Runner) resolveUser(cmd *cli.Command) (*models.User, error) {
	email := cmd.String("email")
	if email == "" {
		return nil, fmt.Errorf("%w: --email is required", shared.ErrMissingArgument)
	}
	return r.users.GetByEmail(email)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, accountCommand, spotifyCommand, syncCommand, albumsCommand, exportCommand, rankCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
