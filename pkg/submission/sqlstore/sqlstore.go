// Package sqlstore persists submissions in SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/submission"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config contains configuration for the store.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	Path string

	// MaxOpenConns sets the maximum number of open connections.
	// For SQLite, this should typically be low to avoid lock contention.
	MaxOpenConns int
}

// Store implements submission.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ submission.Store = (*Store)(nil)

// Open opens (creating when needed) the database at cfg.Path and runs
// migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlstore: database path required")
	}

	connStr := cfg.Path
	maxConns := cfg.MaxOpenConns
	if cfg.Path == MemoryPath {
		// Every connection to :memory: is a separate database.
		maxConns = 1
	} else {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlstore: create directory %s: %w", dir, err)
		}
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	if maxConns == 0 {
		maxConns = 5
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(min(maxConns, 2))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS form_submissions (
		id TEXT PRIMARY KEY,
		farmer_id TEXT NOT NULL,
		form_name TEXT,
		form_version TEXT,
		form_version_id INTEGER,
		source TEXT NOT NULL,
		state TEXT NOT NULL,
		submitted_by TEXT,
		submitted_at INTEGER NOT NULL,
		responses TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_form_submissions_farmer ON form_submissions(farmer_id, submitted_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save inserts or replaces sub.
func (s *Store) Save(ctx context.Context, sub submission.Submission) error {
	responses, err := json.Marshal(sub.Responses)
	if err != nil {
		return fmt.Errorf("sqlstore: encode responses: %w", err)
	}
	query := `
	INSERT INTO form_submissions (id, farmer_id, form_name, form_version, form_version_id,
		source, state, submitted_by, submitted_at, responses)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		farmer_id = excluded.farmer_id,
		form_name = excluded.form_name,
		form_version = excluded.form_version,
		form_version_id = excluded.form_version_id,
		source = excluded.source,
		state = excluded.state,
		submitted_by = excluded.submitted_by,
		submitted_at = excluded.submitted_at,
		responses = excluded.responses
	`
	_, err = s.db.ExecContext(ctx, query,
		sub.ID, sub.FarmerID, sub.FormName, string(sub.FormVersion), sub.FormVersionID,
		string(sub.Source), string(sub.State), sub.SubmittedBy, sub.SubmittedAt.UnixNano(), string(responses),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: save %s: %w", sub.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, farmer_id, form_name, form_version, form_version_id,
	source, state, submitted_by, submitted_at, responses FROM form_submissions`

// Get returns the submission with id.
func (s *Store) Get(ctx context.Context, id string) (submission.Submission, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	sub, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, submission.ErrNotFound
	}
	if err != nil {
		return submission.Submission{}, fmt.Errorf("sqlstore: get %s: %w", id, err)
	}
	return sub, nil
}

// ListByFarmer returns the farmer's submissions newest first.
func (s *Store) ListByFarmer(ctx context.Context, farmerID string) ([]submission.Submission, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE farmer_id = ? ORDER BY submitted_at DESC, rowid DESC`, farmerID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list farmer %s: %w", farmerID, err)
	}
	defer rows.Close()

	var out []submission.Submission
	for rows.Next() {
		sub, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: list farmer %s: %w", farmerID, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: list farmer %s: %w", farmerID, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (submission.Submission, error) {
	var (
		sub         submission.Submission
		formName    sql.NullString
		formVersion sql.NullString
		submittedBy sql.NullString
		versionID   sql.NullInt64
		source      string
		state       string
		responses   string
		submittedAt int64
	)
	if err := row.Scan(&sub.ID, &sub.FarmerID, &formName, &formVersion, &versionID,
		&source, &state, &submittedBy, &submittedAt, &responses); err != nil {
		return submission.Submission{}, err
	}
	sub.FormName = formName.String
	sub.FormVersion = formdef.Version(formVersion.String)
	sub.FormVersionID = versionID.Int64
	sub.Source = submission.Source(source)
	sub.State = submission.State(state)
	sub.SubmittedBy = submittedBy.String
	sub.SubmittedAt = time.Unix(0, submittedAt).UTC()
	if err := json.Unmarshal([]byte(responses), &sub.Responses); err != nil {
		return submission.Submission{}, fmt.Errorf("decode responses: %w", err)
	}
	return sub, nil
}
