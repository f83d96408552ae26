// Package profile keeps the optional contact details a wallet holder enters
// about themselves, one JSON file per address.
package profile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/pkg/logger"
)

// Profile is the stored record. Every field is optional.
type Profile struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Telegram string `json:"telegram"`
	XHandle  string `json:"xHandle"`
}

// Empty reports whether no field is set.
func (p Profile) Empty() bool {
	return p == Profile{}
}

// Store is a directory of profile files.
type Store struct {
	dir string
	log *logger.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on the first Save.
func NewStore(dir string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("profile")
	}
	return &Store{dir: dir, log: log}
}

// Path returns the file that holds the profile of address, or "" when address
// is not a Sui address.
func (s *Store) Path(address string) string {
	if !sui.IsValidAddress(address) {
		return ""
	}
	return filepath.Join(s.dir, "suiven_profile_"+sui.NormalizeAddress(address)+".json")
}

// Load returns the profile of address, or an empty one if none is stored or
// the file cannot be read.
func (s *Store) Load(address string) Profile {
	path := s.Path(address)
	if path == "" {
		return Profile{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("address", address).Warn("profile read failed")
		}
		return Profile{}
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.WithError(err).WithField("address", address).Warn("profile is not valid JSON")
		return Profile{}
	}
	return p
}

// Save stores p for address and reports whether it was written.
func (s *Store) Save(address string, p Profile) bool {
	path := s.Path(address)
	if path == "" {
		return false
	}
	data, err := json.Marshal(p)
	if err != nil {
		return false
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.log.WithError(err).WithField("dir", s.dir).Warn("profile directory unavailable")
		return false
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.log.WithError(err).WithField("address", address).Warn("profile write failed")
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		s.log.WithError(err).WithField("address", address).Warn("profile write failed")
		return false
	}
	return true
}

// Clear removes the profile of address. Clearing a missing profile succeeds.
func (s *Store) Clear(address string) bool {
	path := s.Path(address)
	if path == "" {
		return false
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).WithField("address", address).Warn("profile delete failed")
		return false
	}
	return true
}

