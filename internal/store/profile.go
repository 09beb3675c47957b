package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/markerpad/internal/detector"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Profile is a named color band.
type Profile struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Band      detector.ColorBand `json:"band"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ProfileRepository provides CRUD operations for color profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, lower_h, lower_s, lower_v, upper_h, upper_s, upper_v, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	b := &p.Band
	err := row.Scan(&p.ID, &p.Name,
		&b.Lower.H, &b.Lower.S, &b.Lower.V,
		&b.Upper.H, &b.Upper.S, &b.Upper.V,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create validates the band and inserts the profile. An empty ID is filled
// with a new UUID.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if err := p.Band.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	b := p.Band
	_, err := r.db.Exec(
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, b.Lower.H, b.Lower.S, b.Lower.V, b.Upper.H, b.Upper.S, b.Upper.V,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List retrieves all profiles ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update changes the name and band of an existing profile.
func (r *ProfileRepository) Update(p *Profile) error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if err := p.Band.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()

	b := p.Band
	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, lower_h = ?, lower_s = ?, lower_v = ?,
		 upper_h = ?, upper_s = ?, upper_v = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, b.Lower.H, b.Lower.S, b.Lower.V, b.Upper.H, b.Upper.S, b.Upper.V, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a profile and its samples. Deleting the active profile
// clears the active setting.
func (r *ProfileRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM settings WHERE key = ? AND value = ?`, SettingActiveProfile, id); err != nil {
		return err
	}

	return tx.Commit()
}
