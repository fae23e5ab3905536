// Package identity holds warden's credential records and the storage boundary for them.
//
// A Store keeps at most one Credential per username and exposes an atomic insert:
// of any number of concurrent inserts for one username, exactly one succeeds and the
// rest report ErrConflict. Three backends implement it: MemoryStore (volatile),
// PostgresStore and SQLiteStore (durable).
//
// Usernames are matched exactly as given. No trimming or case folding happens here.
package identity
