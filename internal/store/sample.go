package store

import (
	"database/sql"
	"image"
	"time"

	"github.com/ayusman/markerpad/internal/detector"
)

// Sample is one pixel color sampled from the camera for a profile.
type Sample struct {
	ID        int64        `json:"id"`
	ProfileID string       `json:"profileId"`
	Point     image.Point  `json:"point"`
	Color     detector.HSV `json:"color"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SampleRepository stores color samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Add records a sampled color for a profile.
func (r *SampleRepository) Add(profileID string, p image.Point, c detector.HSV) (*Sample, error) {
	now := time.Now()
	result, err := r.db.Exec(
		`INSERT INTO color_samples (profile_id, x, y, h, s, v, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profileID, p.X, p.Y, c.H, c.S, c.V, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Sample{ID: id, ProfileID: profileID, Point: p, Color: c, CreatedAt: now}, nil
}

// GetByProfileID retrieves all samples for a profile, oldest first.
func (r *SampleRepository) GetByProfileID(profileID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, profile_id, x, y, h, s, v, created_at
		 FROM color_samples
		 WHERE profile_id = ?
		 ORDER BY id`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Point.X, &s.Point.Y,
			&s.Color.H, &s.Color.S, &s.Color.V, &s.CreatedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByProfileID removes all samples for a profile.
func (r *SampleRepository) DeleteByProfileID(profileID string) error {
	_, err := r.db.Exec(`DELETE FROM color_samples WHERE profile_id = ?`, profileID)
	return err
}
