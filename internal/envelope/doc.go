// Package envelope implements the versioned binary container for encrypted
// wallet secrets and its text transport encoding.
//
// Binary layout (offsets in bytes):
//
//	[0:1]   version (1 = device bound, 2 = portable)
//	[1:5]   PBKDF2 iterations, big-endian uint32
//	[5:21]  salt
//	[21:33] GCM nonce
//	[33:]   ciphertext followed by the 16-byte GCM tag
//
// Decode validates length, version and iteration bounds, in that order,
// before any key derivation is attempted by the caller.
package envelope
