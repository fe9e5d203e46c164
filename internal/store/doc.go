// Package store persists wallet metadata: identity providers, networks,
// wallets, sessions, and submitted transactions.
//
// The store runs over an embedded sqlite database by default and over
// postgres for shared deployments; both speak through the same Store
// interface. Schema changes go through the ordered migration history in
// migrate.go, recorded in a migrations ledger table.
//
// Global collections (identity providers, global networks) are visible to
// every caller. Everything else is scoped to a user: derive a handle with
// WithAuthContext and the per-user operations act only on that user's
// rows. Cross-row guarantees (a single primary wallet per user, at most
// one session per user, no dangling identity provider references) are
// enforced inside database transactions rather than by callers.
package store
