// Package data persists medication scan records in SQLite.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pillchecker/pillchecker/extraction/entities"
	"github.com/pillchecker/pillchecker/interfaces"
)

// Compile-time check to ensure Store implements MedicationStore
var _ interfaces.MedicationStore = (*Store)(nil)

// ErrNotFound is returned when a medication does not exist for the profile.
var ErrNotFound = errors.New("medication not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the SQLite medication repository.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path and its schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS medications (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			profile_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			scan_date TEXT NOT NULL,
			active_ingredients TEXT NOT NULL DEFAULT '',
			scanned_text TEXT NOT NULL DEFAULT '',
			dosage TEXT NOT NULL DEFAULT '',
			prescription_details TEXT NOT NULL DEFAULT '{}',
			scan_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_medications_profile_date ON medications(profile_id, scan_date DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Create inserts m, assigning an ID and scan date when they are unset.
func (s *Store) Create(ctx context.Context, m *entities.Medication) error {
	if m.ProfileID == "" {
		return errors.New("medication profile id is required")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ScanDate.IsZero() {
		m.ScanDate = time.Now()
	}
	m.ScanDate = m.ScanDate.UTC()

	details := m.PrescriptionDetails
	if details.RelatedConditions == nil {
		details.RelatedConditions = []string{}
	}
	if details.ConceptIdentifiers == nil {
		details.ConceptIdentifiers = []string{}
	}
	m.PrescriptionDetails = details

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encoding prescription details: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO medications
			(id, profile_id, title, scan_date, active_ingredients, scanned_text, dosage, prescription_details, scan_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProfileID, m.Title, m.ScanDate.Format(timeLayout), m.ActiveIngredients,
		m.ScannedText, m.Dosage, string(detailsJSON), m.ScanURL, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting medication: %w", err)
	}
	return nil
}

const selectColumns = `id, profile_id, title, scan_date, active_ingredients, scanned_text, dosage, prescription_details, scan_url`

// Get returns the profile's medication with the given id.
func (s *Store) Get(ctx context.Context, profileID, id string) (entities.Medication, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM medications WHERE id = ? AND profile_id = ?`, id, profileID)
	m, err := scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Medication{}, ErrNotFound
	}
	if err != nil {
		return entities.Medication{}, fmt.Errorf("getting medication: %w", err)
	}
	return m, nil
}

// List returns one page (1-based) of the profile's medications, newest
// first, and the profile's total count.
func (s *Store) List(ctx context.Context, profileID string, page, size int) ([]entities.Medication, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM medications WHERE profile_id = ?`, profileID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting medications: %w", err)
	}

	items, err := s.query(ctx,
		`SELECT `+selectColumns+` FROM medications WHERE profile_id = ?
		ORDER BY scan_date DESC, rowid DESC LIMIT ? OFFSET ?`,
		profileID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Recent returns up to limit of the profile's newest medications.
func (s *Store) Recent(ctx context.Context, profileID string, limit int) ([]entities.Medication, error) {
	if limit < 1 {
		limit = 1
	}
	return s.query(ctx,
		`SELECT `+selectColumns+` FROM medications WHERE profile_id = ?
		ORDER BY scan_date DESC, rowid DESC LIMIT ?`,
		profileID, limit)
}

// Delete removes the profile's medication with the given id.
func (s *Store) Delete(ctx context.Context, profileID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM medications WHERE id = ? AND profile_id = ?`, id, profileID)
	if err != nil {
		return fmt.Errorf("deleting medication: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting medication: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored medications across all profiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM medications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting medications: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]entities.Medication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying medications: %w", err)
	}
	defer rows.Close()

	items := []entities.Medication{}
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning medication: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating medications: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedication(row scanner) (entities.Medication, error) {
	var (
		m           entities.Medication
		scanDate    string
		detailsJSON string
	)
	if err := row.Scan(&m.ID, &m.ProfileID, &m.Title, &scanDate, &m.ActiveIngredients,
		&m.ScannedText, &m.Dosage, &detailsJSON, &m.ScanURL); err != nil {
		return entities.Medication{}, err
	}

	t, err := time.Parse(timeLayout, scanDate)
	if err != nil {
		return entities.Medication{}, fmt.Errorf("parsing scan date %q: %w", scanDate, err)
	}
	m.ScanDate = t

	if err := json.Unmarshal([]byte(detailsJSON), &m.PrescriptionDetails); err != nil {
		return entities.Medication{}, fmt.Errorf("decoding prescription details: %w", err)
	}
	if m.PrescriptionDetails.RelatedConditions == nil {
		m.PrescriptionDetails.RelatedConditions = []string{}
	}
	if m.PrescriptionDetails.ConceptIdentifiers == nil {
		m.PrescriptionDetails.ConceptIdentifiers = []string{}
	}
	return m, nil
}
