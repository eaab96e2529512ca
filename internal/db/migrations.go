package db

import "fmt"

// RunMigrations applies any pending database migrations
func (db *DB) RunMigrations() error {
	if err := db.runSalespersonMigration(); err != nil {
		return err
	}

	if err := db.runHistoryMigration(); err != nil {
		return err
	}

	return nil
}

// Databases created before salesperson assignment only carry notes.
func (db *DB) runSalespersonMigration() error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('companies')
		WHERE name = 'assigned_salesperson'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for salesperson column: %w", err)
	}

	if count > 0 {
		return nil
	}

	db.logger.Info("running migration", "migration", "assigned_salesperson")

	_, err = db.conn.Exec(`ALTER TABLE companies ADD COLUMN assigned_salesperson TEXT`)
	if err != nil && err.Error() != "duplicate column name: assigned_salesperson" {
		return fmt.Errorf("adding assigned_salesperson column: %w", err)
	}

	db.logger.Info("migration completed", "migration", "assigned_salesperson")
	return nil
}

func (db *DB) runHistoryMigration() error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type = 'table' AND name = 'company_note_history'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for notes history table: %w", err)
	}

	if count > 0 {
		return nil
	}

	db.logger.Info("running migration", "migration", "company_note_history")

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS company_note_history (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    company_id INTEGER NOT NULL,
		    notes TEXT,
		    assigned_salesperson TEXT,
		    changed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		    FOREIGN KEY (company_id) REFERENCES companies (id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("creating notes history table: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_note_history_company ON company_note_history (company_id, changed_at DESC)`)
	if err != nil {
		return fmt.Errorf("creating notes history index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history migration: %w", err)
	}

	db.logger.Info("migration completed", "migration", "company_note_history")
	return nil
}
