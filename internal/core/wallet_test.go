package core

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/seedlock/internal/calibrate"
	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/envelope"
	"github.com/illarion/seedlock/internal/security"
)

type walletSecret struct {
	Seed string `json:"seed"`
}

var testSecret = walletSecret{Seed: "sEdT7wHTCLzDG7Natmm4QEXrSSKfKTs"}

// newTestWallet returns a wallet whose calibration always resolves from a
// fixed probe duration; 0 yields the minimum iteration count.
func newTestWallet(t *testing.T, probe time.Duration) *Wallet {
	t.Helper()
	w, err := Open(
		filepath.Join(t.TempDir(), "wallet.db"),
		WithCalibration(calibrate.WithProbe(func() (time.Duration, error) {
			return probe, nil
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func deviceBound(id string) Options {
	return Options{DeviceBound: true, DeviceID: id}
}

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("1234"), deviceBound("dev-abc"))
	require.NoError(t, err)

	var got walletSecret
	require.NoError(t, w.Decrypt(ctx, blob, []byte("1234"), Options{DeviceID: "dev-abc"}, &got))
	assert.Equal(t, testSecret, got)

	err = w.Decrypt(ctx, blob, []byte("1234"), Options{DeviceID: "dev-xyz"}, &got)
	assert.ErrorIs(t, err, ErrAuthentication)

	err = w.Decrypt(ctx, blob, []byte("0000"), Options{DeviceID: "dev-abc"}, &got)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestRoundTripPortable(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	secret := map[string]any{"seed": "abandon about", "index": float64(3)}
	blob, err := w.Encrypt(ctx, secret, []byte("correct horse"), Options{DeviceID: "dev-abc"})
	require.NoError(t, err)

	env, err := envelope.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, envelope.VersionPortable, env.Version)

	// Device id is irrelevant for portable envelopes
	for _, id := range []string{"", "dev-abc", "dev-xyz"} {
		var got map[string]any
		require.NoError(t, w.Decrypt(ctx, blob, []byte("correct horse"), Options{DeviceID: id}, &got))
		assert.Equal(t, secret, got)
	}
}

func TestEmptyDeviceIDIsConsistent(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("1234"), deviceBound(""))
	require.NoError(t, err)

	var got walletSecret
	require.NoError(t, w.Decrypt(ctx, blob, []byte("1234"), Options{}, &got))
	assert.Equal(t, testSecret, got)

	err = w.Decrypt(ctx, blob, []byte("1234"), Options{DeviceID: "dev-abc"}, &got)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestWrongPasswordFailsClosed(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("1234"), Options{})
	require.NoError(t, err)

	for _, password := range []string{"", "12345", "123", "1234 "} {
		got := walletSecret{Seed: "untouched"}
		err := w.Decrypt(ctx, blob, []byte(password), Options{}, &got)
		assert.ErrorIs(t, err, ErrAuthentication, "password %q", password)
		assert.Equal(t, "untouched", got.Seed)
	}
}

func TestTamperedCiphertextFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("1234"), deviceBound("dev-abc"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// First ciphertext byte, a middle byte, the first and last tag bytes,
	// and the salt and nonce regions
	positions := []int{
		envelope.HeaderSize,
		envelope.HeaderSize + (len(raw)-envelope.HeaderSize)/2,
		len(raw) - crypto.TagSize,
		len(raw) - 1,
		5,
		21,
	}
	for _, pos := range positions {
		tampered := append([]byte(nil), raw...)
		tampered[pos] ^= 0x80

		var got walletSecret
		err := w.Decrypt(ctx, base64.StdEncoding.EncodeToString(tampered), []byte("1234"), Options{DeviceID: "dev-abc"}, &got)
		assert.ErrorIs(t, err, ErrAuthentication, "byte %d", pos)
	}
}

func TestVersionFlipFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("1234"), deviceBound("dev-abc"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Relabelling a device-bound envelope as portable drops the AAD
	raw[0] = byte(envelope.VersionPortable)

	var got walletSecret
	err = w.Decrypt(ctx, base64.StdEncoding.EncodeToString(raw), []byte("1234"), Options{DeviceID: "dev-abc"}, &got)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestMalformedBlobRejectedBeforeDerivation(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("1234"), Options{})
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	var got walletSecret

	short := base64.StdEncoding.EncodeToString(raw[:envelope.MinSize-1])
	err = w.Decrypt(ctx, short, []byte("1234"), Options{}, &got)
	var fe *envelope.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, envelope.ReasonTooShort, fe.Reason)

	// A one-round iteration count would derive instantly; it must be refused instead
	downgraded := append([]byte(nil), raw...)
	binary.BigEndian.PutUint32(downgraded[1:5], 1)
	err = w.Decrypt(ctx, base64.StdEncoding.EncodeToString(downgraded), []byte("1234"), Options{}, &got)
	var ie *envelope.InvalidIterationCountError
	require.ErrorAs(t, err, &ie)
	assert.NotErrorIs(t, err, ErrAuthentication)

	binary.BigEndian.PutUint32(downgraded[1:5], crypto.MaxIterations+1)
	err = w.Decrypt(ctx, base64.StdEncoding.EncodeToString(downgraded), []byte("1234"), Options{}, &got)
	require.ErrorAs(t, err, &ie)
}

func TestDecryptUsesEnvelopeIterations(t *testing.T) {
	ctx := context.Background()

	// 20ms probe calibrates to 650k on the "slow" device
	slow := newTestWallet(t, 20*time.Millisecond)
	blob, err := slow.Encrypt(ctx, testSecret, []byte("1234"), Options{})
	require.NoError(t, err)

	env, err := envelope.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, uint32(650_000), env.Iterations)

	fast := newTestWallet(t, 0)
	var got walletSecret
	require.NoError(t, fast.Decrypt(ctx, blob, []byte("1234"), Options{}, &got))
	assert.Equal(t, testSecret, got)
}

func TestEncryptRequiresPassword(t *testing.T) {
	w := newTestWallet(t, 0)
	_, err := w.Encrypt(context.Background(), testSecret, nil, Options{})
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestEncryptCachesCalibration(t *testing.T) {
	w := newTestWallet(t, 10*time.Millisecond)

	_, ok := w.CachedCalibration()
	assert.False(t, ok)

	n, err := w.Iterations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1_250_000), n)

	rec, ok := w.CachedCalibration()
	require.True(t, ok)
	assert.Equal(t, uint32(1_250_000), rec.Iterations)
}

func TestStoredWalletLifecycle(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)
	opts := deviceBound("dev-abc")

	exists, err := w.Exists(DefaultWallet)
	require.NoError(t, err)
	assert.False(t, exists)

	var got walletSecret
	err = w.Load(ctx, DefaultWallet, []byte("1234"), opts, &got)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Save(ctx, DefaultWallet, testSecret, []byte("1234"), opts))
	require.NoError(t, w.Load(ctx, DefaultWallet, []byte("1234"), opts, &got))
	assert.Equal(t, testSecret, got)

	err = w.Save(ctx, DefaultWallet, walletSecret{Seed: "other"}, []byte("1234"), opts)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	overwrite := opts
	overwrite.Overwrite = true
	require.NoError(t, w.Save(ctx, DefaultWallet, walletSecret{Seed: "other"}, []byte("1234"), overwrite))
	require.NoError(t, w.Load(ctx, DefaultWallet, []byte("1234"), opts, &got))
	assert.Equal(t, "other", got.Seed)

	require.NoError(t, w.Delete(DefaultWallet))
	exists, err = w.Exists(DefaultWallet)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, w.Delete(DefaultWallet), ErrNotFound)
}

func TestFailedLoadLeavesBlobUntouched(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	require.NoError(t, w.Save(ctx, DefaultWallet, testSecret, []byte("1234"), Options{}))
	before, err := w.store.GetBlob(DefaultWallet)
	require.NoError(t, err)

	var got walletSecret
	err = w.Load(ctx, DefaultWallet, []byte("0000"), Options{}, &got)
	assert.ErrorIs(t, err, ErrAuthentication)

	after, err := w.store.GetBlob(DefaultWallet)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)
	opts := deviceBound("dev-abc")

	require.NoError(t, w.Save(ctx, DefaultWallet, testSecret, []byte("1234"), opts))

	err := w.ChangePassword(ctx, DefaultWallet, []byte("0000"), []byte("5678"), opts)
	assert.ErrorIs(t, err, ErrAuthentication)

	require.NoError(t, w.ChangePassword(ctx, DefaultWallet, []byte("1234"), []byte("5678"), opts))

	var got walletSecret
	assert.ErrorIs(t, w.Load(ctx, DefaultWallet, []byte("1234"), opts, &got), ErrAuthentication)
	require.NoError(t, w.Load(ctx, DefaultWallet, []byte("5678"), opts, &got))
	assert.Equal(t, testSecret, got)

	info, err := w.Info(DefaultWallet)
	require.NoError(t, err)
	assert.True(t, info.DeviceBound, "binding is preserved")

	err = w.ChangePassword(ctx, "missing", []byte("1234"), []byte("5678"), opts)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestWallet(t, 0)
	require.NoError(t, src.Save(ctx, DefaultWallet, testSecret, []byte("1234"), deviceBound("dev-abc")))

	_, err := src.Export(ctx, DefaultWallet, []byte("1234"), []byte("export-pw"), Options{DeviceID: "dev-xyz"}, envelope.Base58)
	assert.ErrorIs(t, err, ErrAuthentication)

	exported, err := src.Export(ctx, DefaultWallet, []byte("1234"), []byte("export-pw"), Options{DeviceID: "dev-abc"}, envelope.Base58)
	require.NoError(t, err)

	env, err := envelope.DecodeWith(envelope.Base58, exported)
	require.NoError(t, err)
	assert.Equal(t, envelope.VersionPortable, env.Version)

	dst := newTestWallet(t, 0)
	err = dst.Import(ctx, "moved", exported, []byte("wrong"), deviceBound("dev-xyz"), envelope.Base58, nil)
	assert.ErrorIs(t, err, ErrAuthentication)

	require.NoError(t, dst.Import(ctx, "moved", exported, []byte("export-pw"), deviceBound("dev-xyz"), envelope.Base58, nil))

	var got walletSecret
	require.NoError(t, dst.Load(ctx, "moved", []byte("export-pw"), Options{DeviceID: "dev-xyz"}, &got))
	assert.Equal(t, testSecret, got)

	info, err := dst.Info("moved")
	require.NoError(t, err)
	assert.True(t, info.DeviceBound)

	err = dst.Import(ctx, "moved", exported, []byte("export-pw"), deviceBound("dev-xyz"), envelope.Base58, nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestInfoAndList(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	require.NoError(t, w.Save(ctx, "savings", testSecret, []byte("1234"), deviceBound("dev-abc")))
	require.NoError(t, w.Save(ctx, DefaultWallet, testSecret, []byte("1234"), Options{}))
	require.NoError(t, w.store.PutBlob("corrupt", "AAAA"))

	infos, err := w.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, DefaultWallet, infos[0].Name)
	assert.Equal(t, envelope.VersionPortable, infos[0].Version)
	assert.False(t, infos[0].DeviceBound)
	assert.Equal(t, uint32(crypto.MinIterations), infos[0].Iterations)

	assert.Equal(t, "savings", infos[1].Name)
	assert.True(t, infos[1].DeviceBound)

	_, err = w.Info("corrupt")
	assert.ErrorIs(t, err, envelope.ErrFormat)

	_, err = w.Info("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsBadNames(t *testing.T) {
	w := newTestWallet(t, 0)
	for _, name := range []string{"", " padded", "line\nbreak", strings.Repeat("n", security.MaxNameLen+1)} {
		err := w.Save(context.Background(), name, testSecret, []byte("1234"), Options{})
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestCancelledContext(t *testing.T) {
	w := newTestWallet(t, 0)
	blob, err := w.Encrypt(context.Background(), testSecret, []byte("1234"), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got walletSecret
	assert.ErrorIs(t, w.Decrypt(ctx, blob, []byte("1234"), Options{}, &got), context.Canceled)
}

var errUnusableSeed = errors.New("unusable seed")

type checkedSecret struct {
	Seed string `json:"seed"`
}

func (c *checkedSecret) Validate() error {
	if c.Seed == "bad" {
		return errUnusableSeed
	}
	return nil
}

func TestLoadValidatesSecret(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	require.NoError(t, w.Save(ctx, "good", walletSecret{Seed: "fine"}, []byte("1234"), Options{}))
	require.NoError(t, w.Save(ctx, "broken", walletSecret{Seed: "bad"}, []byte("1234"), Options{}))

	var got checkedSecret
	require.NoError(t, w.Load(ctx, "good", []byte("1234"), Options{}, &got))
	assert.Equal(t, "fine", got.Seed)

	err := w.Load(ctx, "broken", []byte("1234"), Options{}, &got)
	assert.ErrorIs(t, err, ErrInvalidSecret)
	assert.ErrorIs(t, err, errUnusableSeed)
}

func TestImportValidatesBeforeStoring(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, walletSecret{Seed: "bad"}, []byte("export-pw"), Options{})
	require.NoError(t, err)

	var got checkedSecret
	err = w.Import(ctx, "imported", blob, []byte("export-pw"), Options{}, envelope.Base64, &got)
	assert.ErrorIs(t, err, errUnusableSeed)

	exists, err := w.Exists("imported")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestImportResolvesDeviceOnlyAfterVerification(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t, 0)

	blob, err := w.Encrypt(ctx, testSecret, []byte("export-pw"), Options{})
	require.NoError(t, err)

	var resolved int
	opts := Options{
		DeviceBound: true,
		ResolveDeviceID: func() (string, error) {
			resolved++
			return "dev-new", nil
		},
	}

	err = w.Import(ctx, "moved", blob, []byte("wrong"), opts, envelope.Base64, nil)
	assert.ErrorIs(t, err, ErrAuthentication)
	err = w.Import(ctx, "moved", "not an envelope", []byte("export-pw"), opts, envelope.Base64, nil)
	assert.ErrorIs(t, err, envelope.ErrFormat)
	assert.Zero(t, resolved)

	require.NoError(t, w.Import(ctx, "moved", blob, []byte("export-pw"), opts, envelope.Base64, nil))
	assert.Equal(t, 1, resolved)

	var got walletSecret
	require.NoError(t, w.Load(ctx, "moved", []byte("export-pw"), Options{DeviceID: "dev-new"}, &got))
	assert.Equal(t, testSecret, got)
}

func TestEncryptDeviceResolverError(t *testing.T) {
	w := newTestWallet(t, 0)
	keyringDown := errors.New("keyring locked")

	_, err := w.Encrypt(context.Background(), testSecret, []byte("1234"), Options{
		DeviceBound:     true,
		ResolveDeviceID: func() (string, error) { return "", keyringDown },
	})
	assert.ErrorIs(t, err, keyringDown)
}

func TestPathAndCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	w, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, path, w.Path())
	created, err := w.Created()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), created, time.Minute)
	require.NoError(t, w.Close())

	// Reopening keeps the original creation time
	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()
	again, err := w.Created()
	require.NoError(t, err)
	assert.True(t, created.Equal(again))

	unbacked := New(w.store)
	assert.Empty(t, unbacked.Path())
	_, err = unbacked.Created()
	assert.Error(t, err)
}
