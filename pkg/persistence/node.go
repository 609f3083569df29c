package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// RecordVersion is the current version of the node record format.
const RecordVersion = 1

// ErrUnsupportedVersion is returned by Load for records written by a newer build.
var ErrUnsupportedVersion = errors.New("unsupported node record version")

// NodeRecord is the persisted state of a mesh node.
type NodeRecord struct {
	// Version is the record format version.
	Version int `json:"version"`

	// SavedAt is when the record was last saved.
	SavedAt time.Time `json:"saved_at"`

	// DeviceUUID is the UUID advertised in unprovisioned beacons.
	DeviceUUID string `json:"device_uuid"`

	// Provisioned is set once a provisioner completed provisioning.
	Provisioned bool `json:"provisioned"`

	// Address is the primary element's unicast address.
	Address stack.Address `json:"address,omitempty"`

	// IVIndex is the network IV index at provisioning time.
	IVIndex uint32 `json:"iv_index,omitempty"`

	// DeviceKey is the key shared with the provisioner.
	DeviceKey []byte `json:"device_key,omitempty"`
}

// Store loads and saves the node record.
type Store interface {
	// Save persists rec. It sets Version and, when zero, SavedAt.
	Save(rec *NodeRecord) error

	// Load returns the record, or nil, nil if nothing was saved.
	Load() (*NodeRecord, error)

	// Clear erases the record. Clearing an empty store is not an error.
	Clear() error
}

// FileStore keeps the node record in a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Save writes the record, creating parent directories as needed.
func (s *FileStore) Save(rec *NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	stamp(rec)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file and rename so a crash never leaves half a record.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the record. A missing file is an empty store.
func (s *FileStore) Load() (*NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &NodeRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	if rec.Version > RecordVersion {
		return nil, ErrUnsupportedVersion
	}
	return rec, nil
}

// Clear removes the record file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryStore keeps the node record in memory. The zero value is empty.
type MemoryStore struct {
	mu  sync.Mutex
	rec *NodeRecord
}

// Save stores a copy of rec.
func (s *MemoryStore) Save(rec *NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(rec)
	s.rec = rec.clone()
	return nil
}

// Load returns a copy of the stored record.
func (s *MemoryStore) Load() (*NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return nil, nil
	}
	return s.rec.clone(), nil
}

// Clear drops the record.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

func stamp(rec *NodeRecord) {
	rec.Version = RecordVersion
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
}

func (r *NodeRecord) clone() *NodeRecord {
	c := *r
	if r.DeviceKey != nil {
		c.DeviceKey = append([]byte(nil), r.DeviceKey...)
	}
	return &c
}

// Compile-time interface satisfaction checks.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
