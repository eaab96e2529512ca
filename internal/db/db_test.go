package db

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.db")
	require.NoError(t, Initialize(path))
	database, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestInitializeRefusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.db")
	require.NoError(t, Initialize(path))
	assert.Error(t, Initialize(path))
}

func TestUpdateCompanyNotesWritesHistory(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	id, err := database.AddCompany(ctx, Company{Name: "Acme", Category: "customer"})
	require.NoError(t, err)

	require.NoError(t, database.UpdateCompanyNotes(ctx, id, "Follow up Friday", "Alex"))

	company, err := database.GetCompany(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Follow up Friday", company.NotesText())
	assert.Equal(t, "Alex", company.SalespersonText())

	require.NoError(t, database.UpdateCompanyNotes(ctx, id, "", ""))
	company, err = database.GetCompany(ctx, id)
	require.NoError(t, err)
	assert.False(t, company.Notes.Valid)
	assert.False(t, company.AssignedSalesperson.Valid)

	history, err := database.NoteHistory(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Notes.Valid, "newest change first")
	assert.Equal(t, "Follow up Friday", history[1].Notes.String)
}

func TestUpdateCompanyNotesUnknownCompany(t *testing.T) {
	database := openTestDB(t)
	err := database.UpdateCompanyNotes(context.Background(), 42, "x", "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCompanyNotFound(t *testing.T) {
	database := openTestDB(t)
	_, err := database.GetCompany(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoriesAreDistinctAndSorted(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	for _, c := range []Company{
		{Name: "B", Category: "prospect"},
		{Name: "A", Category: "customer"},
		{Name: "C", Category: "prospect"},
		{Name: "D"},
	} {
		_, err := database.AddCompany(ctx, c)
		require.NoError(t, err)
	}

	categories, err := database.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "prospect"}, categories)

	companies, err := database.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 4)
	assert.Equal(t, "A", companies[0].Name)
}

func TestCreateFixturesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.db")
	require.NoError(t, CreateFixturesDatabase(path))

	database, err := Open(path, nil)
	require.NoError(t, err)
	defer database.Close()

	companies, err := database.ListCompanies(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, companies)
}

// createLegacyDatabase writes a database from before salesperson
// assignment and notes history existed.
func createLegacyDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`
		CREATE TABLE companies (
		    id INTEGER PRIMARY KEY AUTOINCREMENT,
		    name TEXT NOT NULL,
		    category TEXT NOT NULL DEFAULT '',
		    notes TEXT,
		    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		INSERT INTO companies (name, category, notes) VALUES ('Blue Harbor Foods', 'prospect', 'Met at expo');
	`)
	require.NoError(t, err)
	return path
}

func columnCount(t *testing.T, database *DB, column string) int {
	t.Helper()
	var count int
	err := database.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('companies') WHERE name = ?`, column,
	).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestOpenMigratesLegacyDatabase(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	database, err := Open(createLegacyDatabase(t), logger)
	require.NoError(t, err)
	defer database.Close()

	assert.Contains(t, logs.String(), "migration=assigned_salesperson")
	assert.Contains(t, logs.String(), "migration=company_note_history")
	assert.Equal(t, 1, columnCount(t, database, "assigned_salesperson"))

	ctx := context.Background()
	company, err := database.GetCompany(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Met at expo", company.NotesText())
	assert.Empty(t, company.SalespersonText())

	require.NoError(t, database.UpdateCompanyNotes(ctx, 1, "Sent proposal", "Alex"))
	company, err = database.GetCompany(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alex", company.SalespersonText())

	history, err := database.NoteHistory(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Sent proposal", history[0].Notes.String)
	assert.Equal(t, "Alex", history[0].AssignedSalesperson.String)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	database, err := Open(createLegacyDatabase(t), logger)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.UpdateCompanyNotes(context.Background(), 1, "Sent proposal", ""))

	logs.Reset()
	require.NoError(t, database.RunMigrations())
	assert.Empty(t, logs.String())
	assert.Equal(t, 1, columnCount(t, database, "assigned_salesperson"))

	// the history table was not recreated
	history, err := database.NoteHistory(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDeleteCompanyRemovesHistory(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	id, err := database.AddCompany(ctx, Company{Name: "Globex", Category: "vendor"})
	require.NoError(t, err)
	require.NoError(t, database.UpdateCompanyNotes(ctx, id, "Renewal due", ""))

	require.NoError(t, database.DeleteCompany(ctx, id))
	_, err = database.GetCompany(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := database.NoteHistory(ctx, id, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, database.DeleteCompany(ctx, id), ErrNotFound)
}
