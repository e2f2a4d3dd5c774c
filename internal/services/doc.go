// Package services implements the external collaborators of the sync engine.
//
// # Source Interface
//
// [Source] yields playlists and tracks from a streaming service. [SpotifyService] implements it
// with the client credentials flow of [golang.org/x/oauth2/clientcredentials] and the
// [github.com/zmb3/spotify/v2] client, following next-page links until the listing is exhausted.
//
// # Library Interface
//
// [Library] is the media server side: title search, playlist editing, account enumeration and
// section rescans. [PlexService] implements it against the Plex HTTP API (XML responses) and
// plex.tv for account lookups. Requests are paced by a golang.org/x/time/rate limiter.
//
// [Library.SwitchUser] returns a new client that acts as a shared account, leaving the original
// untouched so callers can fan out to several accounts from one resolved match set.
//
// # Downloader Interface
//
// [Downloader] hands unmatched track URLs to an external tool. [SpotDL] runs the spotdl command.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : server url or token missing
//   - [shared.ErrSourceCredentials] : source client id, secret or user missing
//   - [shared.ErrSourceUnavailable] : a source that could not be set up was asked for playlists
//   - [shared.ErrAuthFailed] : the server rejected the token
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non 2xx status
//   - [shared.ErrPlaylistNotFound] : no playlist with the requested title
//   - [shared.ErrUserNotFound] : no shared account with the requested name
//   - [shared.ErrSectionNotFound] : no library section with the requested title
package services
