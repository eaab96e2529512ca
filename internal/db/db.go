package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open creates a new database connection and brings its schema up to
// date. Migration progress is logged to logger, or slog.Default when nil.
func Open(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s\nRun 'companies-tui --init' to create it", dbPath)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}

	if err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

const companyColumns = `
	id, name, category, notes, assigned_salesperson, created_at, updated_at
`

func scanCompany(row interface{ Scan(...any) error }) (Company, error) {
	var c Company
	err := row.Scan(
		&c.ID, &c.Name, &c.Category, &c.Notes, &c.AssignedSalesperson,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	c.Name = strings.TrimSpace(strings.ReplaceAll(c.Name, "\n", " "))
	return c, nil
}

// ListCompanies returns all companies ordered by name
func (db *DB) ListCompanies(ctx context.Context) ([]Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies ORDER BY name`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		companies = append(companies, c)
	}

	return companies, rows.Err()
}

// GetCompany retrieves a single company by ID
func (db *DB) GetCompany(ctx context.Context, id int64) (*Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = ?`

	c, err := scanCompany(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting company %d: %w", id, err)
	}

	return &c, nil
}

// Categories returns the distinct, non-empty company categories
func (db *DB) Categories(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT category FROM companies
		WHERE category <> ''
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// AddCompany creates a new company in the database
func (db *DB) AddCompany(ctx context.Context, company Company) (int64, error) {
	query := `
		INSERT INTO companies (name, category, notes, assigned_salesperson, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := db.conn.ExecContext(ctx, query,
		company.Name,
		company.Category,
		company.Notes,
		company.AssignedSalesperson,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting insert ID: %w", err)
	}

	return id, nil
}

// UpdateCompanyNotes replaces the notes and assigned salesperson of a
// company and records the new values in the notes history.
func (db *DB) UpdateCompanyNotes(ctx context.Context, id int64, notes, salesperson string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE companies
		SET notes = ?,
		    assigned_salesperson = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, NewNullString(notes), NewNullString(salesperson), id)
	if err != nil {
		return fmt.Errorf("updating company notes: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO company_note_history (company_id, notes, assigned_salesperson, changed_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, id, NewNullString(notes), NewNullString(salesperson))
	if err != nil {
		return fmt.Errorf("inserting notes history: %w", err)
	}

	return tx.Commit()
}

// NoteHistory returns the most recent notes changes for a company
func (db *DB) NoteHistory(ctx context.Context, companyID int64, limit int) ([]NoteChange, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, company_id, notes, assigned_salesperson, changed_at
		FROM company_note_history
		WHERE company_id = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT ?
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notes history: %w", err)
	}
	defer rows.Close()

	var changes []NoteChange
	for rows.Next() {
		var nc NoteChange
		if err := rows.Scan(&nc.ID, &nc.CompanyID, &nc.Notes, &nc.AssignedSalesperson, &nc.ChangedAt); err != nil {
			return nil, fmt.Errorf("scanning notes history: %w", err)
		}
		changes = append(changes, nc)
	}

	return changes, rows.Err()
}

// DeleteCompany permanently deletes a company and its notes history.
// It returns ErrNotFound when no company has that id.
func (db *DB) DeleteCompany(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM company_note_history WHERE company_id = ?`, id); err != nil {
		return fmt.Errorf("deleting notes history: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting company: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
