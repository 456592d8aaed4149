// Package initdata persists the init data trackers learn while tracking,
// so that a later session can start from it (writeInitData, readInitData,
// resetInitData).
package initdata

import (
	"errors"
	"time"
)

// Store persists init data blobs by key. Keys are the optional client
// prefix followed by the tracker name. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save stores data under key, replacing any previous value and
	// incrementing the key's revision.
	Save(key string, data []byte) error

	// Load returns the data for key, or ErrNotFound.
	Load(key string) ([]byte, error)

	// List returns metadata for every key in ascending key order.
	List() ([]Info, error)

	// Delete removes key. Missing keys are not an error.
	Delete(key string) error

	// Close releases resources.
	Close() error
}

// Info describes a stored entry without its data.
type Info struct {
	Key       string
	Revision  int
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for init data storage.
var (
	// ErrNotFound indicates no init data exists for a key.
	ErrNotFound = errors.New("init data not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("init data store closed")
)

// Key builds the storage key for a tracker.
func Key(prefix, tracker string) string {
	return prefix + tracker
}
