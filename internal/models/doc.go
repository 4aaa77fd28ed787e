// Package models defines domain entities for the songbridge playlist transfer service.
//
// The package contains three categories of types:
//
// 1. Credential state: per-provider token bundles carried inside the session
//   - [Provider] : closed enumeration of linkable platforms (spotify, google)
//   - [TokenBundle] : access token, refresh token and expiry for one provider
//   - [SessionState] : the session subject plus one bundle per linked provider
//   - [ProviderAccount] : provider data delivered by a sign-in or re-link event
//
// 2. Transfer values: request-scoped types created and discarded within one transfer
//   - [SourceTrack] : title, ordered artists and optional ISRC read from the source platform
//   - [Candidate] : a destination identifier (URI or video id), empty when nothing matched
//   - [TransferResult] : created playlist id, counts and the tracks that failed
//   - [PlaylistRef] / [ClassifiedPlaylist] : read-only playlist projections
//
// 3. Persistent entities: database-backed rows implementing [Model]
//   - [User] : the owner of one or more linked accounts
//   - [Account] : one linked provider account with its stored credentials
package models
