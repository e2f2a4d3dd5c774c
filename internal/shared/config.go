package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML (or legacy YAML) file.
type Config struct {
	Plex     PlexConfig     `toml:"plex"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Sync     SyncConfig     `toml:"sync"`
	Match    MatchConfig    `toml:"match"`
	Download DownloadConfig `toml:"download"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// PlexConfig contains the library server connection and the accounts to fan out to.
type PlexConfig struct {
	URL               string  `toml:"url"`
	Token             string  `toml:"token"`
	Users             string  `toml:"users"` // "all" or a comma separated list of account names
	MusicSection      string  `toml:"music_section"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PlexTVURL         string  `toml:"plex_tv_url"`
}

// SpotifyConfig contains Spotify API credentials and the playlists to mirror.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	UserID       string   `toml:"user_id"`
	Playlists    []string `toml:"playlists"`    // optional filter on decorated playlist names
	PlaylistIDs  []string `toml:"playlist_ids"` // optional filter on playlist ids
	TokenURL     string   `toml:"token_url"`
	BaseURL      string   `toml:"base_url"`
}

// SyncConfig contains playlist convergence switches.
type SyncConfig struct {
	WriteMissingAsCSV      bool   `toml:"write_missing_as_csv"`
	MissingDir             string `toml:"missing_dir"`
	AppendServiceSuffix    bool   `toml:"append_service_suffix"`
	AddPlaylistPoster      bool   `toml:"add_playlist_poster"`
	AddPlaylistDescription bool   `toml:"add_playlist_description"`
	AppendInsteadOfSync    bool   `toml:"append_instead_of_sync"`
	WaitSeconds            int    `toml:"wait_seconds"`
}

// MatchConfig tunes the similarity policy.
type MatchConfig struct {
	Threshold   float64  `toml:"threshold"`
	Signals     []string `toml:"signals"`
	Metric      string   `toml:"metric"`
	SearchLimit int      `toml:"search_limit"`
}

// DownloadConfig controls acquisition of unmatched tracks.
type DownloadConfig struct {
	Enabled   bool   `toml:"enabled"`
	Command   string `toml:"command"`
	OutputDir string `toml:"output_dir"`
	ConfigDir string `toml:"config_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains log level and optional rotating file settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// LoadConfig reads a configuration file on top of [DefaultConfig].
//
// Files ending in .yaml or .yml are read with the flat upper-case keys of the legacy container layout (PLEX_URL, SECONDS_TO_WAIT, ...).
// Everything else is parsed as TOML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var legacy legacyConfig
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: failed to parse yaml config: %v", ErrInvalidConfig, err)
		}
		legacy.apply(config)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings a sync run cannot start without.
func (c *Config) Validate() error {
	if c.Plex.URL == "" || c.Plex.Token == "" {
		return fmt.Errorf("%w: plex url and token are required", ErrMissingCredentials)
	}
	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("%w: match threshold must be in (0, 1], got %v", ErrInvalidConfig, c.Match.Threshold)
	}
	if c.Sync.WaitSeconds < 0 {
		return fmt.Errorf("%w: wait_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// legacyConfig mirrors the flat YAML layout of older container deployments.
type legacyConfig struct {
	PlexURL                  *string  `yaml:"PLEX_URL"`
	PlexToken                *string  `yaml:"PLEX_TOKEN"`
	PlexUsers                *string  `yaml:"PLEX_USERS"`
	SpotdlDir                *string  `yaml:"SPOTDL_DIR"`
	DownloadMissingTracks    *bool    `yaml:"DOWNLOAD_MISSING_TRACKS"`
	DownloadMissingTracksDir *string  `yaml:"DOWNLOAD_MISSING_TRACKS_DIR"`
	WriteMissingAsCSV        *bool    `yaml:"WRITE_MISSING_AS_CSV"`
	AppendServiceSuffix      *bool    `yaml:"APPEND_SERVICE_SUFFIX"`
	AddPlaylistPoster        *bool    `yaml:"ADD_PLAYLIST_POSTER"`
	AddPlaylistDescription   *bool    `yaml:"ADD_PLAYLIST_DESCRIPTION"`
	AppendInsteadOfSync      *bool    `yaml:"APPEND_INSTEAD_OF_SYNC"`
	SecondsToWait            *int     `yaml:"SECONDS_TO_WAIT"`
	SpotifyClientID          *string  `yaml:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret      *string  `yaml:"SPOTIFY_CLIENT_SECRET"`
	SpotifyUserID            *string  `yaml:"SPOTIFY_USER_ID"`
	SpotifyPlaylists         []string `yaml:"SPOTIFY_PLAYLISTS"`
	SpotifyPlaylistIDs       []string `yaml:"SPOTIFY_PLAYLIST_IDS"`
}

func (l legacyConfig) apply(c *Config) {
	setString(&c.Plex.URL, l.PlexURL)
	setString(&c.Plex.Token, l.PlexToken)
	setString(&c.Plex.Users, l.PlexUsers)
	setString(&c.Download.ConfigDir, l.SpotdlDir)
	setBool(&c.Download.Enabled, l.DownloadMissingTracks)
	setString(&c.Download.OutputDir, l.DownloadMissingTracksDir)
	setBool(&c.Sync.WriteMissingAsCSV, l.WriteMissingAsCSV)
	setBool(&c.Sync.AppendServiceSuffix, l.AppendServiceSuffix)
	setBool(&c.Sync.AddPlaylistPoster, l.AddPlaylistPoster)
	setBool(&c.Sync.AddPlaylistDescription, l.AddPlaylistDescription)
	setBool(&c.Sync.AppendInsteadOfSync, l.AppendInsteadOfSync)
	if l.SecondsToWait != nil {
		c.Sync.WaitSeconds = *l.SecondsToWait
	}
	setString(&c.Spotify.ClientID, l.SpotifyClientID)
	setString(&c.Spotify.ClientSecret, l.SpotifyClientSecret)
	setString(&c.Spotify.UserID, l.SpotifyUserID)
	if len(l.SpotifyPlaylists) > 0 {
		c.Spotify.Playlists = l.SpotifyPlaylists
	}
	if len(l.SpotifyPlaylistIDs) > 0 {
		c.Spotify.PlaylistIDs = l.SpotifyPlaylistIDs
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
