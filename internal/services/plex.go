// Plex implementation of [Library]
//
// The media server speaks XML; account lookups go through plex.tv with the owner token.
package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

const (
	plexTrackType   = "10"
	plexHTTPTimeout = 30 * time.Second
	plexClientID    = "pxsync"
	defaultPlexTV   = "https://plex.tv"
)

// PlexTrack is a track element of a MediaContainer.
type PlexTrack struct {
	ID     string `xml:"ratingKey,attr"`
	Title  string `xml:"title,attr"`
	Artist string `xml:"grandparentTitle,attr"`
	Album  string `xml:"parentTitle,attr"`
}

// PlexPlaylist is a playlist element of a MediaContainer.
type PlexPlaylist struct {
	ID         string `xml:"ratingKey,attr"`
	Title      string `xml:"title,attr"`
	Summary    string `xml:"summary,attr"`
	TrackCount int    `xml:"leafCount,attr"`
}

// PlexDirectory is a library section element.
type PlexDirectory struct {
	Key   string `xml:"key,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// PlexUser is an account the server is shared with, as listed by plex.tv.
type PlexUser struct {
	ID       string `xml:"id,attr"`
	Title    string `xml:"title,attr"`
	Username string `xml:"username,attr"`
}

func (u PlexUser) name() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Title
}

// PlexSharedServer carries the access token a shared account uses on this server.
type PlexSharedServer struct {
	UserID      string `xml:"userID,attr"`
	Username    string `xml:"username,attr"`
	AccessToken string `xml:"accessToken,attr"`
}

// PlexResponse represents the MediaContainer XML returned by the server and plex.tv.
type PlexResponse struct {
	XMLName           xml.Name           `xml:"MediaContainer"`
	MachineIdentifier string             `xml:"machineIdentifier,attr"`
	FriendlyName      string             `xml:"friendlyName,attr"`
	Tracks            []PlexTrack        `xml:"Track"`
	Playlists         []PlexPlaylist     `xml:"Playlist"`
	Directories       []PlexDirectory    `xml:"Directory"`
	Users             []PlexUser         `xml:"User"`
	SharedServers     []PlexSharedServer `xml:"SharedServer"`
}

type plexAccount struct {
	XMLName  xml.Name `xml:"user"`
	Title    string   `xml:"title,attr"`
	Username string   `xml:"username,attr"`
}

// PlexService implements [Library] against a Plex Media Server.
type PlexService struct {
	baseURL    string
	plexTVURL  string
	token      string
	ownerToken string
	account    string
	section    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	machineID   string
	sectionKeys map[string]string
}

// NewPlexService creates a client for the server in cfg. No request is made until the first call.
func NewPlexService(cfg shared.PlexConfig, logger *log.Logger) (*PlexService, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: plex url and token are required", shared.ErrMissingCredentials)
	}

	plexTV := cfg.PlexTVURL
	if plexTV == "" {
		plexTV = defaultPlexTV
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &PlexService{
		baseURL:     strings.TrimSuffix(cfg.URL, "/"),
		plexTVURL:   strings.TrimSuffix(plexTV, "/"),
		token:       cfg.Token,
		ownerToken:  cfg.Token,
		section:     cfg.MusicSection,
		httpClient:  &http.Client{Timeout: plexHTTPTimeout},
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
		sectionKeys: make(map[string]string),
	}, nil
}

// doRequest performs a rate limited request and decodes the XML body into result when non-nil.
func (p *PlexService) doRequest(ctx context.Context, method, base, path string, params url.Values, token string, result any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("X-Plex-Token", token)

	req, err := http.NewRequestWithContext(ctx, method, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/xml")
	req.Header.Set("X-Plex-Client-Identifier", plexClientID)
	req.Header.Set("X-Plex-Product", plexClientID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s returned status %d", shared.ErrAuthFailed, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s %s returned status %d", shared.ErrAPIRequest, method, path, resp.StatusCode)
	}

	if result != nil {
		if err := xml.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, path, err)
		}
	}

	return nil
}

func (p *PlexService) server(ctx context.Context, method, path string, params url.Values, result any) error {
	return p.doRequest(ctx, method, p.baseURL, path, params, p.token, result)
}

func (p *PlexService) plexTV(ctx context.Context, path string, result any) error {
	return p.doRequest(ctx, http.MethodGet, p.plexTVURL, path, nil, p.ownerToken, result)
}

// Ping fetches the server identity, failing with [shared.ErrAuthFailed] when the token is rejected.
func (p *PlexService) Ping(ctx context.Context) error {
	var info PlexResponse
	if err := p.server(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return err
	}
	if info.MachineIdentifier == "" {
		return fmt.Errorf("%w: server response does not contain a machine identifier", shared.ErrAPIRequest)
	}
	p.machineID = info.MachineIdentifier
	return nil
}

func (p *PlexService) machineIdentifier(ctx context.Context) (string, error) {
	if p.machineID == "" {
		if err := p.Ping(ctx); err != nil {
			return "", err
		}
	}
	return p.machineID, nil
}

// sectionKey returns the key of the library section titled name.
func (p *PlexService) sectionKey(ctx context.Context, name string) (string, error) {
	if key, ok := p.sectionKeys[name]; ok {
		return key, nil
	}

	var resp PlexResponse
	if err := p.server(ctx, http.MethodGet, "/library/sections", nil, &resp); err != nil {
		return "", err
	}

	for _, dir := range resp.Directories {
		p.sectionKeys[dir.Title] = dir.Key
	}

	key, ok := p.sectionKeys[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", shared.ErrSectionNotFound, name)
	}
	return key, nil
}

// Search returns at most limit tracks of the music section whose title matches the query.
func (p *PlexService) Search(ctx context.Context, title string, limit int) ([]models.LibraryItem, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: empty search title", shared.ErrInvalidInput)
	}

	key, err := p.sectionKey(ctx, p.section)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", plexTrackType)
	params.Set("query", title)
	if limit > 0 {
		params.Set("X-Plex-Container-Start", "0")
		params.Set("X-Plex-Container-Size", fmt.Sprint(limit))
	}

	var resp PlexResponse
	if err := p.server(ctx, http.MethodGet, "/library/sections/"+key+"/search", params, &resp); err != nil {
		return nil, err
	}

	tracks := resp.Tracks
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	items := make([]models.LibraryItem, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, toLibraryItem(t))
	}
	return items, nil
}

// Playlist returns the audio playlist titled exactly title.
func (p *PlexService) Playlist(ctx context.Context, title string) (*models.LibraryPlaylist, error) {
	params := url.Values{}
	params.Set("playlistType", "audio")

	var resp PlexResponse
	if err := p.server(ctx, http.MethodGet, "/playlists", params, &resp); err != nil {
		return nil, err
	}

	for _, pl := range resp.Playlists {
		if pl.Title == title {
			playlist := toLibraryPlaylist(pl)
			return &playlist, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, title)
}

// CreatePlaylist creates an audio playlist seeded with items.
func (p *PlexService) CreatePlaylist(ctx context.Context, title string, items []models.LibraryItem) (*models.LibraryPlaylist, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: a playlist cannot be created without items", shared.ErrInvalidInput)
	}

	uri, err := p.itemsURI(ctx, items)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", "audio")
	params.Set("title", title)
	params.Set("smart", "0")
	params.Set("uri", uri)

	var resp PlexResponse
	if err := p.server(ctx, http.MethodPost, "/playlists", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Playlists) == 0 {
		return nil, fmt.Errorf("%w: create playlist response is empty", shared.ErrAPIRequest)
	}

	playlist := toLibraryPlaylist(resp.Playlists[0])
	return &playlist, nil
}

func (p *PlexService) ClearPlaylist(ctx context.Context, playlist *models.LibraryPlaylist) error {
	return p.server(ctx, http.MethodDelete, "/playlists/"+playlist.ID+"/items", nil, nil)
}

// AddItems appends items in order. An empty slice is a no-op.
func (p *PlexService) AddItems(ctx context.Context, playlist *models.LibraryPlaylist, items []models.LibraryItem) error {
	if len(items) == 0 {
		return nil
	}

	uri, err := p.itemsURI(ctx, items)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("uri", uri)
	return p.server(ctx, http.MethodPut, "/playlists/"+playlist.ID+"/items", params, nil)
}

func (p *PlexService) EditSummary(ctx context.Context, playlist *models.LibraryPlaylist, summary string) error {
	params := url.Values{}
	params.Set("summary", summary)
	return p.server(ctx, http.MethodPut, "/playlists/"+playlist.ID, params, nil)
}

// UploadPoster asks the server to fetch posterURL and use it as the playlist artwork.
func (p *PlexService) UploadPoster(ctx context.Context, playlist *models.LibraryPlaylist, posterURL string) error {
	params := url.Values{}
	params.Set("url", posterURL)
	return p.server(ctx, http.MethodPost, "/library/metadata/"+playlist.ID+"/posters", params, nil)
}

// Account returns the name of the account this client acts as.
func (p *PlexService) Account(ctx context.Context) (string, error) {
	if p.account != "" {
		return p.account, nil
	}

	var account plexAccount
	if err := p.plexTV(ctx, "/users/account", &account); err != nil {
		return "", err
	}

	p.account = account.Title
	if p.account == "" {
		p.account = account.Username
	}
	return p.account, nil
}

// Users lists the username of every account the owner shares the server with.
// Managed users have no username and are listed by title.
func (p *PlexService) Users(ctx context.Context) ([]string, error) {
	users, err := p.sharedUsers(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.name())
	}
	return names, nil
}

func (p *PlexService) sharedUsers(ctx context.Context) ([]PlexUser, error) {
	var resp PlexResponse
	if err := p.plexTV(ctx, "/api/users", &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// SwitchUser returns a client that acts as the shared account name. The receiver keeps its own token.
func (p *PlexService) SwitchUser(ctx context.Context, name string) (Library, error) {
	machineID, err := p.machineIdentifier(ctx)
	if err != nil {
		return nil, err
	}

	var resp PlexResponse
	if err := p.plexTV(ctx, "/api/servers/"+machineID+"/shared_servers", &resp); err != nil {
		return nil, err
	}

	for _, srv := range resp.SharedServers {
		if strings.EqualFold(srv.Username, name) && srv.AccessToken != "" {
			return p.as(srv.Username, srv.AccessToken), nil
		}
	}

	// A display title differs from the shared server username; join through the user id.
	users, err := p.sharedUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if !strings.EqualFold(u.Title, name) && !strings.EqualFold(u.Username, name) {
			continue
		}
		for _, srv := range resp.SharedServers {
			if srv.UserID == u.ID && srv.AccessToken != "" {
				return p.as(u.name(), srv.AccessToken), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrUserNotFound, name)
}

// as clones the client with another account's token, sharing the limiter and the cached server lookups.
func (p *PlexService) as(account, token string) *PlexService {
	return &PlexService{
		baseURL:     p.baseURL,
		plexTVURL:   p.plexTVURL,
		token:       token,
		ownerToken:  p.ownerToken,
		account:     account,
		section:     p.section,
		httpClient:  p.httpClient,
		limiter:     p.limiter,
		logger:      p.logger.With("account", account),
		machineID:   p.machineID,
		sectionKeys: p.sectionKeys,
	}
}

// Rescan triggers a scan of the section titled section.
func (p *PlexService) Rescan(ctx context.Context, section string) error {
	key, err := p.sectionKey(ctx, section)
	if err != nil {
		return err
	}
	p.logger.Info("requesting library rescan", "section", section, "key", key)
	return p.server(ctx, http.MethodGet, "/library/sections/"+key+"/refresh", nil, nil)
}

func (p *PlexService) itemsURI(ctx context.Context, items []models.LibraryItem) (string, error) {
	machineID, err := p.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machineID, strings.Join(ids, ",")), nil
}

func toLibraryItem(t PlexTrack) models.LibraryItem {
	return models.LibraryItem{ID: t.ID, Title: t.Title, Artist: t.Artist, Album: t.Album}
}

func toLibraryPlaylist(pl PlexPlaylist) models.LibraryPlaylist {
	return models.LibraryPlaylist{ID: pl.ID, Title: pl.Title, Summary: pl.Summary, ItemCount: pl.TrackCount}
}
