// Package storage provides the durable key/value store that holds the signed-in
// user's session between runs.
//
// Three implementations satisfy Storage:
//
//   - FileStorage keeps every key in one JSON document on disk (0600), written
//     atomically. Watch plus OnChange report modifications made by another
//     process, so a logout in one terminal can be observed in another.
//   - RedisStorage keeps keys under a namespace prefix; Clear scans and
//     deletes only that namespace.
//   - MemoryStorage keeps values for the lifetime of the process.
//
// Get returns ErrNotFound for missing keys; Delete is idempotent.
package storage
