// Package storage provides the BBolt key-value store behind seedlock.
//
// Database structure uses three buckets:
//   - meta: schema version and creation time
//   - calibration: the cached PBKDF2 calibration record (JSON {iterations, ts})
//   - wallets: one encrypted envelope transport string per wallet name
//
// Every write is a single BBolt transaction, so a blob or calibration record
// is either fully replaced or left untouched.
package storage
