package models

import "database/sql"

// CreateTables creates the application tables if they do not exist yet.
// Called once at startup; the session table is owned by the session store
// and created separately.
func CreateTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			nom VARCHAR(255) NOT NULL,
			prenom VARCHAR(255) NOT NULL,
			superficie VARCHAR(255) NOT NULL,
			plante VARCHAR(255) NOT NULL,
			email_or_phone VARCHAR(255) NOT NULL UNIQUE,
			password TEXT NOT NULL,
			created DATETIME NOT NULL,
			updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			text TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			created DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created);`,
		`CREATE TABLE IF NOT EXISTS irrigation_events (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			details TEXT NOT NULL,
			created DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS irrigation_events_user_idx ON irrigation_events (user_id, created);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
