// Package repositories implements SQLite persistence for users and their linked provider accounts.
//
// Key Implementations:
//   - [UserRepository] : users with atomic sequence generation
//   - [AccountRepository] : one row per (provider, external account) holding the stored credentials
//
// Account expiry is stored as unix seconds and converted to the milliseconds carried in sessions by [models.Account].
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
