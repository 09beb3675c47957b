package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Color profiles - named HSV bands for a marker
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			lower_h INTEGER NOT NULL CHECK(lower_h BETWEEN 0 AND 179),
			lower_s INTEGER NOT NULL CHECK(lower_s BETWEEN 0 AND 255),
			lower_v INTEGER NOT NULL CHECK(lower_v BETWEEN 0 AND 255),
			upper_h INTEGER NOT NULL CHECK(upper_h BETWEEN 0 AND 179),
			upper_s INTEGER NOT NULL CHECK(upper_s BETWEEN 0 AND 255),
			upper_v INTEGER NOT NULL CHECK(upper_v BETWEEN 0 AND 255),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Color samples - pixels sampled from the camera for a profile
		`CREATE TABLE IF NOT EXISTS color_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			h INTEGER NOT NULL,
			s INTEGER NOT NULL,
			v INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_color_samples_profile_id ON color_samples(profile_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
