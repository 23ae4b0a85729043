// Package storage provides the BBolt database behind companion.
//
// The database uses four buckets:
//   - meta: schema version and created/modified timestamps
//   - preferences: string settings, including the password backend's hash and salt
//   - notes: JSON-encoded notes keyed by name
//   - categories: JSON-encoded note categories keyed by name
//
// Record IDs come from each bucket's sequence, so they survive DeleteAll and
// Compact. BBolt provides ACID transactions, file locking, and corruption
// detection.
package storage
