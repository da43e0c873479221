// Package tasks converts Spotify playlists into YouTube videos and playlists with real-time progress reporting.
//
// # Core Operations
//
// [Converter] exposes two operations:
//
//  1. [Converter.SearchOnly] : Spotify playlist → list of YouTube videos
//     - Extracts the playlist id from the URL before any network call
//     - Fetches the playlist tracks from Spotify
//     - Searches each track on YouTube and reports matches, unmatched and failed tracks
//
//  2. [Converter.ConvertAndPublish] : Spotify playlist → new YouTube playlist
//     - Runs the same steps as SearchOnly
//     - Resolves the session's YouTube grant; a missing or revoked grant yields a redirect URL
//     - Creates the playlist and inserts every match in order
//     - Records a history entry when a [Recorder] is attached
//
// # Matching
//
// [Matcher] fans searches out to a bounded number of workers throttled by a shared
// rate limiter. Results are placed by input index so the match order equals the track order.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
