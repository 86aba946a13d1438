package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/repositories"
	"github.com/desertthunder/albumranker/internal/services"
	"github.com/desertthunder/albumranker/internal/shared"
	"github.com/desertthunder/albumranker/internal/tasks"
)

// stateTTL bounds how long a pending authorization may take.
const stateTTL = 10 * time.Minute

// stateStore maps outstanding OAuth state tokens to the user who started the
// flow. Tokens are single use and expire after [stateTTL].
type stateStore struct {
	mu      sync.Mutex
	pending map[string]stateEntry
}

type stateEntry struct {
	userID  string
	expires time.Time
}

func newStateStore() *stateStore {
	return &stateStore{pending: make(map[string]stateEntry)}
}

func (s *stateStore) Put(state, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[state] = stateEntry{userID: userID, expires: time.Now().Add(stateTTL)}
}

// Consume removes and returns the user bound to state. The second return is
// false for unknown, reused, or expired tokens.
func (s *stateStore) Consume(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[state]
	if !ok {
		return "", false
	}
	delete(s.pending, state)

	if time.Now().After(entry.expires) {
		return "", false
	}
	return entry.userID, true
}

// App holds the dependencies for all HTTP handlers and wires them into a router.
type App struct {
	users    *repositories.UserRepository
	albums   *repositories.AlbumRepository
	auth     *services.SpotifyAuth
	engine   *tasks.CatalogEngine
	sessions *SessionManager
	states   *stateStore
	logger   *log.Logger
}

// NewApp creates the application handler set.
func NewApp(
	users *repositories.UserRepository,
	albums *repositories.AlbumRepository,
	auth *services.SpotifyAuth,
	engine *tasks.CatalogEngine,
	sessions *SessionManager,
	logger *log.Logger,
) *App {
	return &App{
		users:    users,
		albums:   albums,
		auth:     auth,
		engine:   engine,
		sessions: sessions,
		states:   newStateStore(),
		logger:   logger,
	}
}

// Router builds the full route table with logging applied to every request.
func (a *App) Router() *BasicRouter {
	router := NewBasicRouter()
	router.Use(a.LogRequests)

	router.HandleFunc(http.MethodPost, "/api/register", a.HandleRegister)
	router.HandleFunc(http.MethodPost, "/api/login", a.HandleLogin)
	router.HandleFunc(http.MethodPost, "/api/logout", a.HandleLogout)

	router.HandleFunc(http.MethodGet, "/spotify/login", a.RequireAuth(a.HandleSpotifyLogin))
	router.HandleFunc(http.MethodGet, "/spotify/callback", a.HandleSpotifyCallback)
	router.HandleFunc(http.MethodPost, "/api/spotify/unlink", a.RequireAuth(a.HandleUnlink))

	router.HandleFunc(http.MethodGet, "/api/status", a.RequireAuth(a.HandleStatus))
	router.HandleFunc(http.MethodPost, "/api/sync", a.RequireAuth(a.HandleSync))
	router.HandleFunc(http.MethodGet, "/api/albums", a.RequireAuth(a.HandleAlbums))
	router.HandleFunc(http.MethodGet, "/api/years", a.RequireAuth(a.HandleYears))
	router.HandleFunc(http.MethodPost, "/api/ranking", a.RequireAuth(a.HandleSaveRanking))
	router.HandleFunc(http.MethodPost, "/api/settings/color-scheme", a.RequireAuth(a.HandleToggleColorScheme))

	router.HandleFunc(http.MethodGet, "/api/users/", a.HandlePublicUser)

	return router
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps sentinel errors onto HTTP statuses.
func (a *App) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		a.writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, shared.ErrInvalidCredentials):
		a.writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, shared.ErrUserExists):
		a.writeError(w, http.StatusConflict, "an account with this email already exists")
	case errors.Is(err, shared.ErrUserNotFound):
		a.writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, shared.ErrNotLinked):
		a.writeError(w, http.StatusConflict, "no linked spotify account")
	case errors.Is(err, shared.ErrAlreadyLinked):
		a.writeError(w, http.StatusConflict, "spotify account already linked")
	case errors.Is(err, shared.ErrSyncInProgress):
		a.writeError(w, http.StatusConflict, "a sync is already running")
	case errors.Is(err, shared.ErrAlbumNotFound):
		a.writeError(w, http.StatusUnprocessableEntity, "ranking references an unknown album")
	case errors.Is(err, shared.ErrInvalidInput):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrAuthorizationFailed), errors.Is(err, shared.ErrRefreshFailed):
		a.writeError(w, http.StatusBadGateway, "spotify authorization failed")
	default:
		a.logger.Error("request failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	ColorScheme string `json:"color_scheme"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID(),
		Email:       user.Email(),
		ColorScheme: user.ColorScheme(),
	}
}

// HandleRegister creates an account and signs the new user in.
func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := a.users.Register(req.Email, req.Password)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.sessions.Issue(w, user.ID())
	a.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleLogin verifies credentials and issues a session.
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.users.Authenticate(req.Email, req.Password)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.sessions.Issue(w, user.ID())
	a.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleLogout clears the session cookie.
func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSpotifyLogin starts the authorization flow for the signed-in user.
//
// A fresh random state token is generated per request and bound to the user
// so the callback can reject responses it never asked for.
func (a *App) HandleSpotifyLogin(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	state, err := shared.GenerateState()
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.states.Put(state, userID)
	http.Redirect(w, r, a.auth.AuthorizeURL(state), http.StatusFound)
}

// HandleSpotifyCallback completes the authorization flow.
//
// Provider errors and missing codes are rejected before any exchange, and
// the state token is consumed exactly once.
func (a *App) HandleSpotifyCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("authorization denied: %s", errParam))
		return
	}

	code := query.Get("code")
	if code == "" {
		a.writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	userID, ok := a.states.Consume(query.Get("state"))
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid or expired state token")
		return
	}

	if err := a.auth.CompleteAuthorization(r.Context(), userID, code); err != nil {
		a.writeDomainError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleUnlink removes the Spotify link and all synced albums.
func (a *App) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Unlink(UserID(r.Context())); err != nil {
		a.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	User       userResponse `json:"user"`
	Linked     bool         `json:"linked"`
	AlbumCount int          `json:"album_count"`
}

// HandleStatus reports the signed-in user's account and link state.
func (a *App) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	user, err := a.users.Get(userID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	linked, err := a.auth.IsLinked(userID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	count, err := a.albums.Count(userID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, statusResponse{
		User:       toUserResponse(user),
		Linked:     linked,
		AlbumCount: count,
	})
}

// HandleSync runs a full catalog sync for the signed-in user.
func (a *App) HandleSync(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.SyncAll(r.Context(), UserID(r.Context()), nil)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, result)
}

type albumResponse struct {
	SpotifyID   string `json:"spotify_id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	ImageURL    string `json:"image_url"`
	SpotifyURI  string `json:"spotify_uri"`
	ReleaseDate string `json:"release_date"`
	Year        string `json:"year"`
	Rank        *int   `json:"rank"`
	Hidden      bool   `json:"hidden"`
}

func toAlbumResponse(album *models.RankedAlbum) albumResponse {
	return albumResponse{
		SpotifyID:   album.SpotifyID(),
		Name:        album.Name(),
		Artist:      album.Artist(),
		ImageURL:    album.ImageURL(),
		SpotifyURI:  album.SpotifyURI(),
		ReleaseDate: album.ReleaseDate().Format("2006-01-02"),
		Year:        album.Year(),
		Rank:        album.Rank(),
		Hidden:      album.Hidden(),
	}
}

func (a *App) listAlbums(userID, year string, includeHidden bool) ([]albumResponse, error) {
	albums, err := a.albums.ListByYear(userID, year)
	if err != nil {
		return nil, err
	}

	out := make([]albumResponse, 0, len(albums))
	for _, album := range albums {
		if !includeHidden && album.Hidden() {
			continue
		}
		out = append(out, toAlbumResponse(album))
	}
	return out, nil
}

// HandleAlbums lists the signed-in user's albums for one year, hidden included.
func (a *App) HandleAlbums(w http.ResponseWriter, r *http.Request) {
	year := r.URL.Query().Get("year")
	if year == "" {
		a.writeError(w, http.StatusBadRequest, "year query parameter is required")
		return
	}

	albums, err := a.listAlbums(UserID(r.Context()), year, true)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, albums)
}

// HandleYears lists the years the signed-in user can rank. The current year
// is always offered even before any album from it has been synced.
func (a *App) HandleYears(w http.ResponseWriter, r *http.Request) {
	years, err := a.albums.YearsForRanking(UserID(r.Context()))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	if years == nil {
		years = []string{}
	}

	a.writeJSON(w, http.StatusOK, years)
}

type rankingRequest struct {
	Order []struct {
		SpotifyID string `json:"spotify_id"`
		Hidden    bool   `json:"hidden"`
	} `json:"order"`
}

// HandleSaveRanking persists a caller-supplied album order.
func (a *App) HandleSaveRanking(w http.ResponseWriter, r *http.Request) {
	var req rankingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Order) == 0 {
		a.writeError(w, http.StatusBadRequest, "order must not be empty")
		return
	}

	entries := make([]repositories.RankEntry, len(req.Order))
	for i, item := range req.Order {
		if item.SpotifyID == "" {
			a.writeError(w, http.StatusBadRequest, "every entry needs a spotify_id")
			return
		}
		entries[i] = repositories.RankEntry{SpotifyID: item.SpotifyID, Hidden: item.Hidden}
	}

	if err := a.albums.SaveRanking(UserID(r.Context()), entries); err != nil {
		a.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleColorScheme flips the signed-in user's display preference.
func (a *App) HandleToggleColorScheme(w http.ResponseWriter, r *http.Request) {
	scheme, err := a.users.ToggleColorScheme(UserID(r.Context()))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]string{"color_scheme": scheme})
}

// HandlePublicUser serves the read-only public views of another user's
// rankings: /api/users/{id}/albums?year= and /api/users/{id}/years.
//
// Hidden albums never appear in public listings.
func (a *App) HandlePublicUser(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}

	userID := parts[0]
	if _, err := a.users.Get(userID); err != nil {
		a.writeDomainError(w, err)
		return
	}

	switch parts[1] {
	case "albums":
		year := r.URL.Query().Get("year")
		if year == "" {
			a.writeError(w, http.StatusBadRequest, "year query parameter is required")
			return
		}

		albums, err := a.listAlbums(userID, year, false)
		if err != nil {
			a.writeDomainError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, albums)
	case "years":
		years, err := a.albums.Years(userID)
		if err != nil {
			a.writeDomainError(w, err)
			return
		}
		if years == nil {
			years = []string{}
		}
		a.writeJSON(w, http.StatusOK, years)
	default:
		a.writeError(w, http.StatusNotFound, "not found")
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
