// Package repositories implements persistence for session grants and conversion history.
//
// Key Implementations:
//   - [GrantRepository] : SQLite grant store, the default backend
//   - [RedisGrantStore] : Redis grant store for servers that share sessions
//   - [ConversionRepository] : history of published playlists
//
// Both grant stores satisfy the auth package's GrantStore: Get reports a missing grant with
// [shared.ErrGrantNotFound] and Delete of a missing grant succeeds.
//
// Conversions carry a sequence number from [NextSequence], which atomically increments a
// per-table counter kept in a dedicated sequence table.
package repositories
