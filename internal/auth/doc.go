// Package auth manages the per-session OAuth grant that authorizes YouTube writes.
//
// A session moves through these states:
//
//	NO_GRANT → AUTHORIZING → GRANTED → EXPIRED → REFRESHING → GRANTED
//	                                                        ↘ REVOKED (→ NO_GRANT)
//
// [Manager.Resolve] is the single entry point: it returns either an access token or the
// authorization URL the user must visit. An expired token is never returned. A refresh
// rejected by the token endpoint (invalid_grant or any 4xx) deletes the grant; a transient
// failure (network, timeout, 5xx) keeps it and surfaces [shared.ErrUpstreamUnavailable].
//
// Grants live in an injected [GrantStore]. [MemoryStore] is provided here; persistent stores
// are in the repositories package.
package auth
