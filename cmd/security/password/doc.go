// Package password provides password hashing and verification for warden.
//
// Two algorithms are supported behind a single Hasher surface:
// - Argon2id, encoded in a PHC-like string (default for new hashes)
// - bcrypt, in its standard modular-crypt encoding
//
// Config selects the algorithm used for new hashes. Verify detects the algorithm from
// the stored hash, so changing the configured algorithm never strands existing records.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
// - Malformed hashes report ErrInvalidHash; callers treat them as a mismatch.
package password
