package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const schemaVersion = "1"

// Bucket names
var (
	MetaBucket        = []byte("meta")        // Schema version, timestamps
	CalibrationBucket = []byte("calibration") // Cached calibration record
	WalletsBucket     = []byte("wallets")     // Encrypted envelopes by wallet name
)

// Keys
var (
	MetaVersion    = []byte("version")
	MetaCreated    = []byte("created")
	CalibrationKey = []byte("record")
)

var (
	ErrNotFound       = errors.New("not found")
	ErrExists         = errors.New("already exists")
	ErrNotInitialized = errors.New("storage not initialized")
)

// Storage provides BBolt-based storage for seedlock
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a seedlock database, creating its directory if needed
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, openOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. Safe to call on an existing database.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, CalibrationBucket, WalletsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(MetaBucket)
		if meta.Get(MetaVersion) != nil {
			return nil
		}
		if err := meta.Put(MetaVersion, []byte(schemaVersion)); err != nil {
			return err
		}
		created, _ := time.Now().MarshalBinary()
		return meta.Put(MetaCreated, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta != nil && meta.Get(MetaVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// GetCreated retrieves the database creation time
func (s *Storage) GetCreated() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil {
			return ErrNotInitialized
		}
		data := meta.Get(MetaCreated)
		if data == nil {
			return fmt.Errorf("created time %w", ErrNotFound)
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// LoadCalibration returns the raw calibration record, or nil if none is cached
func (s *Storage) LoadCalibration() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(CalibrationBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		// Make a copy since the slice is only valid during the transaction
		if v := bucket.Get(CalibrationKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

// SaveCalibration replaces the calibration record
func (s *Storage) SaveCalibration(record []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(CalibrationBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		return bucket.Put(CalibrationKey, record)
	})
}

// PutBlob stores or overwrites the envelope for a wallet
func (s *Storage) PutBlob(name, blob string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		wallets := tx.Bucket(WalletsBucket)
		if wallets == nil {
			return ErrNotInitialized
		}
		return wallets.Put([]byte(name), []byte(blob))
	})
}

// CreateBlob stores the envelope only if the wallet does not exist yet.
// The check and the write happen in one transaction.
func (s *Storage) CreateBlob(name, blob string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		wallets := tx.Bucket(WalletsBucket)
		if wallets == nil {
			return ErrNotInitialized
		}
		if wallets.Get([]byte(name)) != nil {
			return fmt.Errorf("wallet %q %w", name, ErrExists)
		}
		return wallets.Put([]byte(name), []byte(blob))
	})
}

// GetBlob retrieves the envelope for a wallet
func (s *Storage) GetBlob(name string) (string, error) {
	var blob string
	err := s.db.View(func(tx *bolt.Tx) error {
		wallets := tx.Bucket(WalletsBucket)
		if wallets == nil {
			return ErrNotInitialized
		}
		data := wallets.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("wallet %q %w", name, ErrNotFound)
		}
		// string() copies out of the mmap
		blob = string(data)
		return nil
	})
	return blob, err
}

// HasBlob reports whether a wallet is stored
func (s *Storage) HasBlob(name string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		wallets := tx.Bucket(WalletsBucket)
		if wallets == nil {
			return ErrNotInitialized
		}
		found = wallets.Get([]byte(name)) != nil
		return nil
	})
	return found, err
}

// DeleteBlob removes a wallet's envelope
func (s *Storage) DeleteBlob(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		wallets := tx.Bucket(WalletsBucket)
		if wallets == nil {
			return ErrNotInitialized
		}
		if wallets.Get([]byte(name)) == nil {
			return fmt.Errorf("wallet %q %w", name, ErrNotFound)
		}
		return wallets.Delete([]byte(name))
	})
}

// ListBlobs returns all wallet names in key order
func (s *Storage) ListBlobs() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		wallets := tx.Bucket(WalletsBucket)
		if wallets == nil {
			return nil
		}
		return wallets.ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting wallets so old envelopes do not linger in free pages.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// From here on the source is closed; every path must reopen it
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return errors.Join(fmt.Errorf("failed to backup original: %w", err), s.reopen(srcPath))
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		replaceErr := fmt.Errorf("failed to replace database: %w", err)
		if rbErr := os.Rename(backupPath, srcPath); rbErr != nil {
			return errors.Join(replaceErr, fmt.Errorf("failed to restore original from %s: %w", backupPath, rbErr))
		}
		return errors.Join(replaceErr, s.reopen(srcPath))
	}
	os.Remove(backupPath)

	return s.reopen(srcPath)
}

func (s *Storage) reopen(path string) error {
	db, err := bolt.Open(path, 0600, openOptions())
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db
	return nil
}

func openOptions() *bolt.Options {
	return &bolt.Options{Timeout: 2 * time.Second}
}
