package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

type plexRequest struct {
	Method string
	Path   string
	Query  url.Values
}

type fakePlex struct {
	mu       sync.Mutex
	requests []plexRequest
}

func (f *fakePlex) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, plexRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})
}

func (f *fakePlex) find(method, path string) *plexRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.requests {
		if f.requests[i].Method == method && f.requests[i].Path == path {
			return &f.requests[i]
		}
	}
	return nil
}

func newPlexTestServer(t *testing.T) (*PlexService, *fakePlex) {
	t.Helper()

	fake := &fakePlex{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)

		token := r.URL.Query().Get("X-Plex-Token")
		if token != "owner-token" && token != "kid-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		switch r.Method + " " + r.URL.Path {
		case "GET /":
			fmt.Fprint(w, `<MediaContainer machineIdentifier="machine-1" friendlyName="home"/>`)
		case "GET /library/sections":
			fmt.Fprint(w, `<MediaContainer><Directory key="3" title="Music" type="artist"/><Directory key="1" title="Movies" type="movie"/></MediaContainer>`)
		case "GET /library/sections/3/search":
			if r.URL.Query().Get("query") == "broken" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `<MediaContainer>
				<Track ratingKey="10" title="Song" grandparentTitle="Artist" parentTitle="Album"/>
				<Track ratingKey="11" title="Song" grandparentTitle="Other" parentTitle="Live"/>
				<Track ratingKey="12" title="Song" grandparentTitle="Third" parentTitle="Best Of"/>
			</MediaContainer>`)
		case "GET /library/sections/3/refresh":
			w.WriteHeader(http.StatusOK)
		case "GET /playlists":
			if token == "kid-token" {
				fmt.Fprint(w, `<MediaContainer/>`)
				return
			}
			fmt.Fprint(w, `<MediaContainer>
				<Playlist ratingKey="50" title="Road Trip - Spotify (old)" summary="" leafCount="1"/>
				<Playlist ratingKey="51" title="Road Trip - Spotify" summary="Driving" leafCount="2"/>
			</MediaContainer>`)
		case "POST /playlists":
			fmt.Fprintf(w, `<MediaContainer><Playlist ratingKey="60" title=%q leafCount="2"/></MediaContainer>`, r.URL.Query().Get("title"))
		case "DELETE /playlists/51/items", "PUT /playlists/51/items", "PUT /playlists/51", "POST /library/metadata/51/posters":
			w.WriteHeader(http.StatusOK)
		case "GET /users/account":
			fmt.Fprint(w, `<user id="1" title="admin" username="admin"/>`)
		case "GET /api/users":
			fmt.Fprint(w, `<MediaContainer><User id="2" title="kid" username=""/><User id="3" title="guest" username="guest"/><User id="4" title="Sam Smith" username="sammy"/></MediaContainer>`)
		case "GET /api/servers/machine-1/shared_servers":
			fmt.Fprint(w, `<MediaContainer><SharedServer userID="2" username="kid" accessToken="kid-token"/><SharedServer userID="3" username="guest" accessToken=""/><SharedServer userID="4" username="sammy" accessToken="sam-token"/></MediaContainer>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	svc, err := NewPlexService(shared.PlexConfig{
		URL:          server.URL + "/",
		Token:        "owner-token",
		MusicSection: "Music",
		PlexTVURL:    server.URL,
	}, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewPlexService() error = %v", err)
	}
	return svc, fake
}

func TestPlexService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewPlexService", func(t *testing.T) {
		_, err := NewPlexService(shared.PlexConfig{URL: "http://plex"}, shared.NewLogger(io.Discard))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		svc, _ := newPlexTestServer(t)
		if err := svc.Ping(ctx); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
		if svc.machineID != "machine-1" {
			t.Errorf("expected machine id to be cached, got %q", svc.machineID)
		}
	})

	t.Run("Ping Rejected Token", func(t *testing.T) {
		svc, _ := newPlexTestServer(t)
		svc.token = "wrong"
		if err := svc.Ping(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		svc, fake := newPlexTestServer(t)

		items, err := svc.Search(ctx, "Song", 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected limit to cap results at 2, got %d", len(items))
		}
		want := models.LibraryItem{ID: "10", Title: "Song", Artist: "Artist", Album: "Album"}
		if items[0] != want {
			t.Errorf("items[0] = %+v, want %+v", items[0], want)
		}

		req := fake.find(http.MethodGet, "/library/sections/3/search")
		if req == nil {
			t.Fatal("expected a section search request")
		}
		if req.Query.Get("type") != "10" || req.Query.Get("query") != "Song" {
			t.Errorf("unexpected search query %v", req.Query)
		}
	})

	t.Run("Search Errors", func(t *testing.T) {
		svc, _ := newPlexTestServer(t)

		if _, err := svc.Search(ctx, "  ", 5); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for blank title, got %v", err)
		}
		if _, err := svc.Search(ctx, "broken", 5); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}

		svc.section = "Podcasts"
		if _, err := svc.Search(ctx, "Song", 5); !errors.Is(err, shared.ErrSectionNotFound) {
			t.Errorf("expected ErrSectionNotFound, got %v", err)
		}
	})

	t.Run("Playlist", func(t *testing.T) {
		svc, _ := newPlexTestServer(t)

		playlist, err := svc.Playlist(ctx, "Road Trip - Spotify")
		if err != nil {
			t.Fatalf("Playlist() error = %v", err)
		}
		if playlist.ID != "51" || playlist.ItemCount != 2 || playlist.Summary != "Driving" {
			t.Errorf("unexpected playlist %+v", playlist)
		}

		if _, err := svc.Playlist(ctx, "Road Trip"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected exact title match only, got %v", err)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		svc, fake := newPlexTestServer(t)

		items := []models.LibraryItem{{ID: "10"}, {ID: "10"}, {ID: "12"}}
		playlist, err := svc.CreatePlaylist(ctx, "New - Spotify", items)
		if err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}
		if playlist.ID != "60" || playlist.Title != "New - Spotify" {
			t.Errorf("unexpected playlist %+v", playlist)
		}

		req := fake.find(http.MethodPost, "/playlists")
		if req == nil {
			t.Fatal("expected a create request")
		}
		wantURI := "server://machine-1/com.plexapp.plugins.library/library/metadata/10,10,12"
		if req.Query.Get("uri") != wantURI {
			t.Errorf("uri = %q, want %q", req.Query.Get("uri"), wantURI)
		}
		if req.Query.Get("type") != "audio" || req.Query.Get("smart") != "0" {
			t.Errorf("unexpected create query %v", req.Query)
		}

		if _, err := svc.CreatePlaylist(ctx, "Empty", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty items, got %v", err)
		}
	})

	t.Run("Edit Playlist", func(t *testing.T) {
		svc, fake := newPlexTestServer(t)
		playlist := &models.LibraryPlaylist{ID: "51"}

		if err := svc.ClearPlaylist(ctx, playlist); err != nil {
			t.Fatalf("ClearPlaylist() error = %v", err)
		}
		if err := svc.AddItems(ctx, playlist, []models.LibraryItem{{ID: "11"}}); err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		if err := svc.AddItems(ctx, playlist, nil); err != nil {
			t.Fatalf("AddItems() with no items error = %v", err)
		}
		if err := svc.EditSummary(ctx, playlist, "Driving songs"); err != nil {
			t.Fatalf("EditSummary() error = %v", err)
		}
		if err := svc.UploadPoster(ctx, playlist, "https://img/p1.jpg"); err != nil {
			t.Fatalf("UploadPoster() error = %v", err)
		}

		if fake.find(http.MethodDelete, "/playlists/51/items") == nil {
			t.Error("expected a clear request")
		}
		if req := fake.find(http.MethodPut, "/playlists/51/items"); req == nil || !strings.HasSuffix(req.Query.Get("uri"), "/library/metadata/11") {
			t.Errorf("unexpected add request %+v", req)
		}
		if req := fake.find(http.MethodPut, "/playlists/51"); req == nil || req.Query.Get("summary") != "Driving songs" {
			t.Errorf("unexpected summary request %+v", req)
		}
		if req := fake.find(http.MethodPost, "/library/metadata/51/posters"); req == nil || req.Query.Get("url") != "https://img/p1.jpg" {
			t.Errorf("unexpected poster request %+v", req)
		}
	})

	t.Run("Accounts", func(t *testing.T) {
		svc, _ := newPlexTestServer(t)

		account, err := svc.Account(ctx)
		if err != nil {
			t.Fatalf("Account() error = %v", err)
		}
		if account != "admin" {
			t.Errorf("expected admin, got %q", account)
		}

		users, err := svc.Users(ctx)
		if err != nil {
			t.Fatalf("Users() error = %v", err)
		}
		if len(users) != 3 || users[0] != "kid" || users[1] != "guest" || users[2] != "sammy" {
			t.Errorf("expected usernames with title fallback, got %v", users)
		}
	})

	t.Run("SwitchUser", func(t *testing.T) {
		svc, _ := newPlexTestServer(t)

		lib, err := svc.SwitchUser(ctx, "Kid")
		if err != nil {
			t.Fatalf("SwitchUser() error = %v", err)
		}

		kid := lib.(*PlexService)
		if kid.token != "kid-token" || svc.token != "owner-token" {
			t.Errorf("expected a clone with the shared token, got kid=%q owner=%q", kid.token, svc.token)
		}
		if name, _ := kid.Account(ctx); name != "kid" {
			t.Errorf("expected switched account name kid, got %q", name)
		}
		if _, err := kid.Playlist(ctx, "Road Trip - Spotify"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("switched client should see the shared account's playlists, got %v", err)
		}

		for _, name := range []string{"sammy", "Sam Smith"} {
			lib, err := svc.SwitchUser(ctx, name)
			if err != nil {
				t.Fatalf("SwitchUser(%q) error = %v", name, err)
			}
			if sam := lib.(*PlexService); sam.token != "sam-token" || sam.account != "sammy" {
				t.Errorf("SwitchUser(%q) = account %q token %q, want sammy/sam-token", name, sam.account, sam.token)
			}
		}

		if _, err := svc.SwitchUser(ctx, "guest"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound for account without token, got %v", err)
		}
		if _, err := svc.SwitchUser(ctx, "nobody"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Rescan", func(t *testing.T) {
		svc, fake := newPlexTestServer(t)

		if err := svc.Rescan(ctx, "Music"); err != nil {
			t.Fatalf("Rescan() error = %v", err)
		}
		if fake.find(http.MethodGet, "/library/sections/3/refresh") == nil {
			t.Error("expected a refresh request")
		}
		if err := svc.Rescan(ctx, "Audiobooks"); !errors.Is(err, shared.ErrSectionNotFound) {
			t.Errorf("expected ErrSectionNotFound, got %v", err)
		}
	})
}
