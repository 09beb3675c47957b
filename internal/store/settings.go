package store

import (
	"database/sql"
	"errors"
)

// SettingActiveProfile holds the ID of the profile loaded at startup.
const SettingActiveProfile = "active_profile"

// SettingRepository reads and writes key-value settings.
type SettingRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingRepository {
	return &SettingRepository{db: s.db}
}

// Get returns the value for key.
func (r *SettingRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set stores value under key, replacing any previous value.
func (r *SettingRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. A missing key is not an error.
func (r *SettingRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// ActiveProfile returns the profile marked active, or ErrNotFound.
func (s *Store) ActiveProfile() (*Profile, error) {
	id, err := s.Settings().Get(SettingActiveProfile)
	if err != nil {
		return nil, err
	}
	return s.Profiles().GetByID(id)
}

// SetActiveProfile marks the profile with id as active.
func (s *Store) SetActiveProfile(id string) (*Profile, error) {
	p, err := s.Profiles().GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.Settings().Set(SettingActiveProfile, id); err != nil {
		return nil, err
	}
	return p, nil
}
