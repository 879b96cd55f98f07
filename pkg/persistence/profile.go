package persistence

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProfileVersion is the current version of the profile file format.
const ProfileVersion = 1

// LTKSize is the stored long term key length in bytes.
const LTKSize = 32

// Profile contains the durable identity of a device or probe.
type Profile struct {
	// Version is the profile file format version.
	Version int `json:"version"`

	// SavedAt is when the profile was last saved.
	SavedAt time.Time `json:"saved_at"`

	// ID is the stable identity UUID presented in the hello exchange
	// and in mDNS TXT records.
	ID uuid.UUID `json:"id"`

	// Name is the display name.
	Name string `json:"name,omitempty"`

	// Bond records the last completed pairing, if any.
	Bond *Bond `json:"bond,omitempty"`
}

// Bond is the receipt of a completed pairing exchange.
type Bond struct {
	// PeerID is the identity of the paired peer.
	PeerID uuid.UUID `json:"peer_id"`

	// LTK is the hex-encoded long term key.
	LTK string `json:"ltk"`

	// PairedAt is when the exchange completed.
	PairedAt time.Time `json:"paired_at"`
}

// NewBond creates a bond record for a derived key.
func NewBond(peerID uuid.UUID, ltk [LTKSize]byte) *Bond {
	return &Bond{
		PeerID:   peerID,
		LTK:      hex.EncodeToString(ltk[:]),
		PairedAt: time.Now(),
	}
}

// Key decodes the stored long term key.
func (b *Bond) Key() ([LTKSize]byte, error) {
	var ltk [LTKSize]byte

	raw, err := hex.DecodeString(b.LTK)
	if err != nil {
		return ltk, fmt.Errorf("decode stored key: %w", err)
	}
	if len(raw) != LTKSize {
		return ltk, fmt.Errorf("stored key is %d bytes, want %d", len(raw), LTKSize)
	}

	copy(ltk[:], raw)
	return ltk, nil
}

// ProfileStore manages persistence of a profile to a JSON file.
type ProfileStore struct {
	mu   sync.Mutex
	path string
}

// NewProfileStore creates a profile store backed by the given path.
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// Path returns the backing file path.
func (s *ProfileStore) Path() string {
	return s.path
}

// Save persists the profile to disk. The write goes through a temp
// file and a rename so a crash never leaves a half-written profile.
func (s *ProfileStore) Save(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	p.Version = ProfileVersion
	p.SavedAt = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".profile-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}

// Load reads the profile from disk.
// Returns nil, nil if the file doesn't exist.
func (s *ProfileStore) Load() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *ProfileStore) load() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}

	return p, nil
}

// LoadOrCreate reads the profile, or mints a fresh identity with the
// given display name and persists it when no profile exists yet.
func (s *ProfileStore) LoadOrCreate(name string) (*Profile, error) {
	s.mu.Lock()
	p, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	p = &Profile{
		ID:   uuid.New(),
		Name: name,
	}
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Clear removes the profile file.
func (s *ProfileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
