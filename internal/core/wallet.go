package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/seedlock/internal/calibrate"
	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/envelope"
	"github.com/illarion/seedlock/internal/logger"
	"github.com/illarion/seedlock/internal/security"
	"github.com/illarion/seedlock/internal/storage"
)

// DefaultWallet is the wallet name used when none is given
const DefaultWallet = "default"

// Store is the key-value backend a Wallet persists into
type Store interface {
	calibrate.Store

	CreateBlob(name, blob string) error
	PutBlob(name, blob string) error
	GetBlob(name string) (string, error)
	HasBlob(name string) (bool, error)
	DeleteBlob(name string) error
	ListBlobs() ([]string, error)
}

// Options control how a secret is bound and stored
type Options struct {
	// DeviceBound selects a version 1 envelope tied to DeviceID.
	// Ignored on decrypt, where the envelope version decides.
	DeviceBound bool
	// DeviceID is the current device identity; empty is treated as ""
	// consistently on both encrypt and decrypt.
	DeviceID string
	// Overwrite allows Save and Import to replace an existing wallet
	Overwrite bool
	// ResolveDeviceID, when set, supplies the id a device-bound envelope is
	// sealed to. It is called only once the secret is ready to be sealed,
	// so a failed Import never reaches it.
	ResolveDeviceID func() (string, error)
}

func (o Options) sealBinding() (envelope.Binding, error) {
	if !o.DeviceBound {
		return envelope.Portable{}, nil
	}

	id := o.DeviceID
	if o.ResolveDeviceID != nil {
		var err error
		if id, err = o.ResolveDeviceID(); err != nil {
			return nil, fmt.Errorf("failed to get device id: %w", err)
		}
	}
	return envelope.DeviceBound{DeviceID: id}, nil
}

// Validator is implemented by secrets that can check their own contents.
// Decrypt, Load and Import call it after unmarshalling.
type Validator interface {
	Validate() error
}

// Info is the password-free description of a stored wallet
type Info struct {
	Name        string
	Version     envelope.Version
	DeviceBound bool
	Iterations  uint32
	Size        int
}

// Wallet encrypts secrets and owns their persisted envelopes
type Wallet struct {
	store      Store
	db         *storage.Storage
	calibrator *calibrate.Calibrator
	log        *logger.Logger

	calibrationOpts []calibrate.Option
}

type Option func(*Wallet)

func WithLogger(l *logger.Logger) Option {
	return func(w *Wallet) { w.log = l }
}

// WithCalibration passes options through to the calibrator
func WithCalibration(opts ...calibrate.Option) Option {
	return func(w *Wallet) { w.calibrationOpts = append(w.calibrationOpts, opts...) }
}

// New creates a Wallet over store
func New(store Store, opts ...Option) *Wallet {
	w := &Wallet{
		store: store,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	calOpts := append([]calibrate.Option{calibrate.WithLogger(w.log.Component("calibrate"))}, w.calibrationOpts...)
	w.calibrator = calibrate.New(store, calOpts...)
	return w
}

// Open opens (creating if needed) the database at path
func Open(path string, opts ...Option) (*Wallet, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	initialized, err := db.IsInitialized()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	w := New(db, opts...)
	w.db = db
	if !initialized {
		w.log.Info().Str("db", path).Msg("created wallet database")
	}
	return w, nil
}

// Path returns the database file, or "" for a Wallet built with New
func (w *Wallet) Path() string {
	if w.db == nil {
		return ""
	}
	return w.db.Path()
}

// Created returns when the database was first initialized
func (w *Wallet) Created() (time.Time, error) {
	if w.db == nil {
		return time.Time{}, errors.New("creation time requires a database opened with Open")
	}
	return w.db.GetCreated()
}

// Close releases the database opened by Open
func (w *Wallet) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Compact reclaims free pages so deleted envelopes do not linger on disk
func (w *Wallet) Compact() error {
	if w.db == nil {
		return errors.New("compaction requires a database opened with Open")
	}
	return w.db.Compact()
}

// Iterations returns the calibrated iteration count for new envelopes
func (w *Wallet) Iterations(ctx context.Context) (uint32, error) {
	return w.calibrator.Iterations(ctx)
}

// Recalibrate forces a new calibration probe
func (w *Wallet) Recalibrate(ctx context.Context) (uint32, error) {
	return w.calibrator.Recalibrate(ctx)
}

// CachedCalibration returns the cached calibration, if still valid
func (w *Wallet) CachedCalibration() (calibrate.Record, bool) {
	return w.calibrator.Cached()
}

// Encrypt serializes secret to JSON and seals it into a transport string.
// Device-bound options produce a version 1 envelope, otherwise version 2.
func (w *Wallet) Encrypt(ctx context.Context, secret any, password []byte, opts Options) (string, error) {
	plaintext, err := json.Marshal(secret)
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	binding, err := opts.sealBinding()
	if err != nil {
		return "", err
	}

	env, err := w.sealCalibrated(ctx, plaintext, password, binding)
	if err != nil {
		return "", err
	}
	return envelope.Encode(env)
}

// Decrypt opens a transport string and unmarshals the secret into out.
// The envelope is validated before any key derivation, and the key is derived
// with the envelope's own iteration count.
func (w *Wallet) Decrypt(ctx context.Context, blob string, password []byte, opts Options, out any) error {
	env, err := envelope.Decode(blob)
	if err != nil {
		return err
	}
	return w.openInto(ctx, env, password, opts.DeviceID, out)
}

// Save encrypts secret and stores it under name.
// An existing wallet is only replaced when opts.Overwrite is set.
func (w *Wallet) Save(ctx context.Context, name string, secret any, password []byte, opts Options) error {
	if err := validateName(name); err != nil {
		return err
	}

	blob, err := w.Encrypt(ctx, secret, password, opts)
	if err != nil {
		return err
	}

	if err := w.put(name, blob, opts.Overwrite); err != nil {
		return err
	}

	w.log.Debug().Str("wallet", name).Bool("device_bound", opts.DeviceBound).Msg("wallet saved")
	return nil
}

// Load decrypts the stored wallet into out. It never modifies the store.
func (w *Wallet) Load(ctx context.Context, name string, password []byte, opts Options, out any) error {
	blob, err := w.get(name)
	if err != nil {
		return err
	}

	if err := w.Decrypt(ctx, blob, password, opts, out); err != nil {
		w.log.Debug().Str("wallet", name).Err(err).Msg("wallet unlock failed")
		return err
	}
	return nil
}

// Delete removes a stored wallet
func (w *Wallet) Delete(name string) error {
	if err := w.store.DeleteBlob(name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete wallet: %w", err)
	}

	w.log.Debug().Str("wallet", name).Msg("wallet deleted")
	return nil
}

// Exists reports whether a wallet is stored under name
func (w *Wallet) Exists(name string) (bool, error) {
	return w.store.HasBlob(name)
}

// Info describes a stored wallet without decrypting it
func (w *Wallet) Info(name string) (*Info, error) {
	blob, err := w.get(name)
	if err != nil {
		return nil, err
	}

	env, err := envelope.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", name, err)
	}

	h := env.Header()
	return &Info{
		Name:        name,
		Version:     h.Version,
		DeviceBound: h.Version == envelope.VersionDeviceBound,
		Iterations:  h.Iterations,
		Size:        h.Size,
	}, nil
}

// List describes every stored wallet. Unreadable envelopes are skipped and logged.
func (w *Wallet) List() ([]Info, error) {
	names, err := w.store.ListBlobs()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		info, err := w.Info(name)
		if err != nil {
			w.log.Warn().Str("wallet", name).Err(err).Msg("skipping unreadable wallet")
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// ChangePassword re-encrypts a stored wallet under a new password.
// The binding is kept and the iteration count is refreshed from calibration.
func (w *Wallet) ChangePassword(ctx context.Context, name string, current, next []byte, opts Options) error {
	blob, err := w.get(name)
	if err != nil {
		return err
	}

	env, err := envelope.Decode(blob)
	if err != nil {
		return err
	}

	plaintext, err := w.open(ctx, env, current, opts.DeviceID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plaintext)

	binding, err := env.Version.Bind(opts.DeviceID)
	if err != nil {
		return err
	}

	sealed, err := w.sealCalibrated(ctx, plaintext, next, binding)
	if err != nil {
		return err
	}
	encoded, err := envelope.Encode(sealed)
	if err != nil {
		return err
	}

	if err := w.store.PutBlob(name, encoded); err != nil {
		return fmt.Errorf("failed to store wallet: %w", err)
	}

	w.log.Debug().Str("wallet", name).Uint32("iterations", sealed.Iterations).Msg("wallet password changed")
	return nil
}

// Export returns a portable copy of a stored wallet protected by exportPassword
func (w *Wallet) Export(ctx context.Context, name string, password, exportPassword []byte, opts Options, enc envelope.Encoding) (string, error) {
	blob, err := w.get(name)
	if err != nil {
		return "", err
	}

	env, err := envelope.Decode(blob)
	if err != nil {
		return "", err
	}

	plaintext, err := w.open(ctx, env, password, opts.DeviceID)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(plaintext)

	sealed, err := w.sealCalibrated(ctx, plaintext, exportPassword, envelope.Portable{})
	if err != nil {
		return "", err
	}

	w.log.Debug().Str("wallet", name).Str("encoding", enc.String()).Msg("wallet exported")
	return envelope.EncodeWith(enc, sealed)
}

// Import opens an exported blob with password and stores it under name,
// re-encrypted with the same password and the binding chosen by opts.
// When out is non-nil the secret is unmarshalled into it and validated
// before anything is stored.
func (w *Wallet) Import(ctx context.Context, name, blob string, password []byte, opts Options, enc envelope.Encoding, out any) error {
	if err := validateName(name); err != nil {
		return err
	}

	env, err := envelope.DecodeWith(enc, blob)
	if err != nil {
		return err
	}

	plaintext, err := w.open(ctx, env, password, opts.DeviceID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plaintext)

	if out == nil {
		if !json.Valid(plaintext) {
			return ErrInvalidSecret
		}
	} else if err := decodeSecret(plaintext, out); err != nil {
		return err
	}

	binding, err := opts.sealBinding()
	if err != nil {
		return err
	}

	sealed, err := w.sealCalibrated(ctx, plaintext, password, binding)
	if err != nil {
		return err
	}
	encoded, err := envelope.Encode(sealed)
	if err != nil {
		return err
	}

	if err := w.put(name, encoded, opts.Overwrite); err != nil {
		return err
	}

	w.log.Debug().Str("wallet", name).Bool("device_bound", opts.DeviceBound).Msg("wallet imported")
	return nil
}

func (w *Wallet) get(name string) (string, error) {
	blob, err := w.store.GetBlob(name)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read wallet: %w", err)
	}
	return blob, nil
}

func (w *Wallet) put(name, blob string, overwrite bool) error {
	if overwrite {
		if err := w.store.PutBlob(name, blob); err != nil {
			return fmt.Errorf("failed to store wallet: %w", err)
		}
		return nil
	}

	err := w.store.CreateBlob(name, blob)
	if errors.Is(err, storage.ErrExists) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if err != nil {
		return fmt.Errorf("failed to store wallet: %w", err)
	}
	return nil
}

func (w *Wallet) sealCalibrated(ctx context.Context, plaintext, password []byte, binding envelope.Binding) (*envelope.Envelope, error) {
	if len(password) == 0 {
		return nil, ErrPasswordRequired
	}

	iterations, err := w.calibrator.Iterations(ctx)
	if err != nil {
		return nil, err
	}
	return seal(plaintext, password, iterations, binding)
}

func seal(plaintext, password []byte, iterations uint32, binding envelope.Binding) (*envelope.Envelope, error) {
	salt, err := crypto.GenerateRandom(crypto.SaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.GenerateRandom(crypto.NonceSize)
	if err != nil {
		return nil, err
	}

	enc, err := newEncryptor(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	ciphertext, err := enc.Seal(nonce, plaintext, binding.AAD())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	return &envelope.Envelope{
		Version:    binding.Version(),
		Iterations: iterations,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// open derives the key from the envelope's parameters and decrypts.
// The caller must ClearBytes the returned plaintext.
func (w *Wallet) open(ctx context.Context, env *envelope.Envelope, password []byte, deviceID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	binding, err := env.Version.Bind(deviceID)
	if err != nil {
		return nil, err
	}

	enc, err := newEncryptor(password, env.Salt, env.Iterations)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	plaintext, err := enc.Open(env.Nonce, env.Ciphertext, binding.AAD())
	if err != nil {
		if errors.Is(err, crypto.ErrAuthFailed) || errors.Is(err, crypto.ErrInvalidCiphertext) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	return plaintext, nil
}

func (w *Wallet) openInto(ctx context.Context, env *envelope.Envelope, password []byte, deviceID string, out any) error {
	plaintext, err := w.open(ctx, env, password, deviceID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plaintext)

	return decodeSecret(plaintext, out)
}

func decodeSecret(plaintext []byte, out any) error {
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSecret, err)
		}
	}
	return nil
}

func newEncryptor(password, salt []byte, iterations uint32) (*crypto.Encryptor, error) {
	key, err := crypto.DeriveKey(password, salt, iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		crypto.ClearBytes(key)
		return nil, err
	}
	return enc, nil
}

func validateName(name string) error {
	if err := security.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	return nil
}
