// Package services talks to the Spotify Web API and the YouTube Data API v3.
//
// # Clients
//
// [SpotifyClient] and [YouTubeClient] wrap one access token each and issue raw REST calls over
// net/http. A [Factory] builds both from a token so base URLs and the shared [http.Client] can be
// swapped in tests or tuned by configuration.
//
// # Pagination and Batching
//
// [FetchAll] follows continuation cursors until a page has none. [FetchUpTo] does the same with a
// ceiling on the number of items. [WriteBatches] writes a list in fixed-size sequential chunks and
// reports the chunks that failed without stopping.
//
// # Error Handling
//
// Non-2xx replies become an [*APIError] which wraps typed errors from the shared package:
//   - [shared.ErrAPIRequest] : any non-2xx reply
//   - [shared.ErrTokenExpired] : a 401 reply, the access token needs a refresh or a re-link
package services
