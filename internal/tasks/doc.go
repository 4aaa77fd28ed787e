// Package tasks moves playlists between Spotify and YouTube with real-time progress reporting.
//
// # Core Operations
//
// [Pipeline] exposes two transfers:
//
//  1. [Pipeline.Transfer] : Spotify → YouTube
//     - Fetches every track of the source playlist
//     - Creates an unlisted YouTube playlist
//     - Searches each track on YouTube and inserts the top video, one at a time
//
//  2. [Pipeline.TransferReverse] : YouTube → Spotify
//     - Fetches up to a configured number of playlist videos
//     - Creates a private Spotify playlist
//     - Parses "Artist - Title" out of each video title, searches Spotify
//     - Adds the matched tracks in chunks of 100
//
// A fetch or create failure aborts the transfer. Every later failure is recorded on the
// result and the loop moves on.
//
// # Rate Limiting
//
// Every upstream search and write waits on a [Gate], a token bucket shared by the pipeline.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, and a message.
// Updates use select with default to prevent blocking.
//
// # Classification
//
// [Classifier] decides which YouTube playlists hold music by sampling their video categories.
package tasks
