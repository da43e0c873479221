// Package models defines the domain entities that flow through a conversion.
//
// Data moves strictly downstream:
//
//	Spotify URL → [PlaylistReference] → []Track → []VideoMatch → [YouTubePlaylist]
//
// Transient values:
//   - [PlaylistReference] : the source URL and the playlist id extracted from it
//   - [Track] : title and primary artist; [Track.Query] is the YouTube search text
//   - [VideoMatch] : the first search result for one track
//   - [MatchReport] : matches, unmatched and failed tracks of one playlist
//   - [PublishResult] : the created playlist and the per-item outcome
//
// Persistent entities:
//   - [Grant] : a session's OAuth authorization for the YouTube write scope
//   - [Conversion] : a history record of a published playlist
package models
