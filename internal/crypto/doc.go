// Package crypto provides the key derivation and authenticated encryption
// primitives used by seedlock.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - a fixed application prefix on the password (domain separation)
//   - 16-byte random salt per encryption
//   - an iteration count chosen by the calibrator, bounded by
//     MinIterations and MaxIterations
//
// Encryption uses AES-256-GCM with:
//   - 32-byte derived key
//   - 12-byte random nonce per encryption operation
//   - optional additional authenticated data (device binding)
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
