// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/services"
	"github.com/desertthunder/pxsync/internal/shared"
)

// MockSource is a test double for [services.Source]
type MockSource struct {
	ServiceName  string
	List         []models.SourcePlaylist
	Items        map[string][]models.SourceTrack // keyed by playlist ID
	PlaylistsErr error
	TracksErr    map[string]error // keyed by playlist ID
}

func (m *MockSource) Name() string {
	if m.ServiceName == "" {
		return "mock"
	}
	return m.ServiceName
}

func (m *MockSource) Playlists(ctx context.Context) ([]models.SourcePlaylist, error) {
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return m.List, nil
}

func (m *MockSource) Tracks(ctx context.Context, playlist models.SourcePlaylist) ([]models.SourceTrack, error) {
	if err := m.TracksErr[playlist.ID]; err != nil {
		return nil, err
	}
	return m.Items[playlist.ID], nil
}

// MockPlaylist is the state the [MockLibrary] keeps for one account's playlist.
type MockPlaylist struct {
	models.LibraryPlaylist
	Items  []models.LibraryItem
	Poster string
}

type mockStore struct {
	owner     string
	users     []string
	catalogue map[string][]models.LibraryItem
	playlists map[string]map[string]*MockPlaylist
	failures  map[string]error
	calls     []string
	rescans   []string
	seq       int
}

// MockLibrary is an in-memory test double for [services.Library].
//
// Views returned by SwitchUser share state with the owner's view. Every call is recorded as
// "account:operation".
type MockLibrary struct {
	store   *mockStore
	account string
}

// NewMockLibrary creates a library owned by owner and shared with users.
func NewMockLibrary(owner string, users ...string) *MockLibrary {
	return &MockLibrary{
		store: &mockStore{
			owner:     owner,
			users:     users,
			catalogue: map[string][]models.LibraryItem{},
			playlists: map[string]map[string]*MockPlaylist{},
			failures:  map[string]error{},
		},
		account: owner,
	}
}

// AddItem makes item a search result for title (case-insensitive).
func (m *MockLibrary) AddItem(title string, item models.LibraryItem) {
	key := strings.ToLower(title)
	m.store.catalogue[key] = append(m.store.catalogue[key], item)
}

// Fail makes op fail for account with err. An empty account fails op for everyone.
//
// Operations: search, playlist, create, clear, add, summary, poster, account, users, switch, rescan.
func (m *MockLibrary) Fail(op, account string, err error) {
	m.store.failures[op+":"+account] = err
}

// Seed creates a playlist for account without recording a call.
func (m *MockLibrary) Seed(account, title string, items ...models.LibraryItem) {
	m.put(account, title, items)
}

// PlaylistState returns the stored playlist of account.
func (m *MockLibrary) PlaylistState(account, title string) (*MockPlaylist, bool) {
	p, ok := m.store.playlists[account][title]
	return p, ok
}

// PlaylistCount counts every playlist across all accounts.
func (m *MockLibrary) PlaylistCount() int {
	n := 0
	for _, playlists := range m.store.playlists {
		n += len(playlists)
	}
	return n
}

// Calls returns the recorded calls in order.
func (m *MockLibrary) Calls() []string { return m.store.calls }

// CallCount counts recorded calls of op across accounts.
func (m *MockLibrary) CallCount(op string) int {
	n := 0
	for _, call := range m.store.calls {
		if strings.HasSuffix(call, ":"+op) {
			n++
		}
	}
	return n
}

// Rescans returns the sections passed to Rescan.
func (m *MockLibrary) Rescans() []string { return m.store.rescans }

func (m *MockLibrary) record(op string) error {
	m.store.calls = append(m.store.calls, m.account+":"+op)
	if err, ok := m.store.failures[op+":"+m.account]; ok {
		return err
	}
	return m.store.failures[op+":"]
}

func (m *MockLibrary) put(account, title string, items []models.LibraryItem) *MockPlaylist {
	if m.store.playlists[account] == nil {
		m.store.playlists[account] = map[string]*MockPlaylist{}
	}
	m.store.seq++
	p := &MockPlaylist{
		LibraryPlaylist: models.LibraryPlaylist{ID: fmt.Sprintf("pl-%d", m.store.seq), Title: title, ItemCount: len(items)},
		Items:           append([]models.LibraryItem(nil), items...),
	}
	m.store.playlists[account][title] = p
	return p
}

func (m *MockLibrary) lookup(playlist *models.LibraryPlaylist) (*MockPlaylist, error) {
	p, ok := m.store.playlists[m.account][playlist.Title]
	if !ok || p.ID != playlist.ID {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlist.Title)
	}
	return p, nil
}

func (m *MockLibrary) Search(ctx context.Context, title string, limit int) ([]models.LibraryItem, error) {
	if err := m.record("search"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := m.store.catalogue[strings.ToLower(title)]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockLibrary) Playlist(ctx context.Context, title string) (*models.LibraryPlaylist, error) {
	if err := m.record("playlist"); err != nil {
		return nil, err
	}
	p, ok := m.store.playlists[m.account][title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, title)
	}
	pl := p.LibraryPlaylist
	return &pl, nil
}

func (m *MockLibrary) CreatePlaylist(ctx context.Context, title string, items []models.LibraryItem) (*models.LibraryPlaylist, error) {
	if err := m.record("create"); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cannot create an empty playlist", shared.ErrInvalidInput)
	}
	p := m.put(m.account, title, items)
	pl := p.LibraryPlaylist
	return &pl, nil
}

func (m *MockLibrary) ClearPlaylist(ctx context.Context, playlist *models.LibraryPlaylist) error {
	if err := m.record("clear"); err != nil {
		return err
	}
	p, err := m.lookup(playlist)
	if err != nil {
		return err
	}
	p.Items = nil
	p.ItemCount = 0
	return nil
}

func (m *MockLibrary) AddItems(ctx context.Context, playlist *models.LibraryPlaylist, items []models.LibraryItem) error {
	if err := m.record("add"); err != nil {
		return err
	}
	p, err := m.lookup(playlist)
	if err != nil {
		return err
	}
	p.Items = append(p.Items, items...)
	p.ItemCount = len(p.Items)
	return nil
}

func (m *MockLibrary) EditSummary(ctx context.Context, playlist *models.LibraryPlaylist, summary string) error {
	if err := m.record("summary"); err != nil {
		return err
	}
	p, err := m.lookup(playlist)
	if err != nil {
		return err
	}
	p.Summary = summary
	return nil
}

func (m *MockLibrary) UploadPoster(ctx context.Context, playlist *models.LibraryPlaylist, posterURL string) error {
	if err := m.record("poster"); err != nil {
		return err
	}
	p, err := m.lookup(playlist)
	if err != nil {
		return err
	}
	p.Poster = posterURL
	return nil
}

func (m *MockLibrary) Ping(ctx context.Context) error {
	return m.record("ping")
}

func (m *MockLibrary) Account(ctx context.Context) (string, error) {
	if err := m.record("account"); err != nil {
		return "", err
	}
	return m.store.owner, nil
}

func (m *MockLibrary) Users(ctx context.Context) ([]string, error) {
	if err := m.record("users"); err != nil {
		return nil, err
	}
	return append([]string{m.store.owner}, m.store.users...), nil
}

func (m *MockLibrary) SwitchUser(ctx context.Context, name string) (services.Library, error) {
	m.store.calls = append(m.store.calls, name+":switch")
	if err, ok := m.store.failures["switch:"+name]; ok {
		return nil, err
	}
	for _, user := range m.store.users {
		if strings.EqualFold(user, name) {
			return &MockLibrary{store: m.store, account: user}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, name)
}

func (m *MockLibrary) Rescan(ctx context.Context, section string) error {
	if err := m.record("rescan"); err != nil {
		return err
	}
	m.store.rescans = append(m.store.rescans, section)
	return nil
}

// MockDownloader records the URLs it was asked to fetch.
type MockDownloader struct {
	Requests [][]string
	Err      error
}

func (m *MockDownloader) Download(ctx context.Context, urls []string) error {
	m.Requests = append(m.Requests, urls)
	return m.Err
}

// MockRecorder collects sync runs in memory.
type MockRecorder struct {
	Runs []models.SyncRun
	Err  error
}

func (m *MockRecorder) Create(run *models.SyncRun) error {
	if m.Err != nil {
		return m.Err
	}
	run.ID = shared.GenerateID()
	run.Sequence = len(m.Runs) + 1
	m.Runs = append(m.Runs, *run)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

var (
	_ services.Source     = (*MockSource)(nil)
	_ services.Library    = (*MockLibrary)(nil)
	_ services.Downloader = (*MockDownloader)(nil)
)
