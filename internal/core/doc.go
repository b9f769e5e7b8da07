// Package core provides the seedlock wallet operations.
//
// Wallet is the only component that touches the key-value store. It
// orchestrates the calibrator, key derivation, AES-GCM and the envelope codec:
//   - Encrypt/Decrypt: secret <-> envelope transport string
//   - Save/Load/Delete: the stored envelope lifecycle per wallet name
//   - ChangePassword: re-encrypt a stored wallet under a new password
//   - Export/Import: portable copies for moving a wallet between devices
//
// A failed Decrypt or Load never modifies stored data. Wrong password, wrong
// device and tampered ciphertext are reported identically as ErrAuthentication.
package core
