package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescore/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "sitescore.db"

// HistoryDB provides SQLite-based storage for finished audit runs.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the given directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s (run with --save first)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	// busy_timeout comes first so the pragmas below wait for other connections.
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the path of the database file.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per finished crawl-and-audit run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		unscored INTEGER NOT NULL,
		average REAL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Score of every page of a run, in discovery order
	CREATE TABLE IF NOT EXISTS page_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		page_key TEXT NOT NULL,
		address TEXT NOT NULL,
		score REAL,
		audit_error TEXT,
		UNIQUE(run_id, page_key)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_key ON page_scores(page_key);
	`

	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// RunMetadata summarizes a stored run without loading its pages.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Site is the seed URL of the run.
	Site string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Total is the number of crawled pages.
	Total int

	// Completed is the number of scored pages.
	Completed int

	// Failed is the number of failed audits.
	Failed int

	// Average is the average score, or NaN when no page was scored.
	Average float64

	// Interrupted is true when the run was cut short.
	Interrupted bool
}

// Scored reports whether the run has a defined average.
func (m RunMetadata) Scored() bool {
	return !math.IsNaN(m.Average)
}

// PageScore is the score of one page in one run.
type PageScore struct {
	// RunID is the run the score belongs to.
	RunID int64

	// StartedAt is when the run began.
	StartedAt time.Time

	// Score is the page score, or model.NoScore if it was not scored.
	Score float64

	// AuditError is set when the audit of the page failed.
	AuditError string
}

// SaveRun stores a finished run and its page scores.
// It returns the ID of the new run.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.AggregateReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (site, started_at, finished_at, total, completed, failed, unscored, average, interrupted, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Site,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Total,
		report.Completed,
		report.Failed,
		report.Unscored,
		nullableScore(report.Average, report.Scored()),
		report.Interrupted,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for i, p := range report.Pages {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO page_scores (run_id, position, page_key, address, score, audit_error)
		VALUES (?, ?, ?, ?, ?, ?)
		`,
			runID,
			i,
			p.Key,
			p.Address,
			nullableScore(p.Score, p.Scored()),
			p.AuditError,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save score of %s: %w", p.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListSites returns every site that has at least one stored run.
func (h *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT site FROM runs ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetRunHistory returns the runs of a site, newest first.
func (h *HistoryDB) GetRunHistory(ctx context.Context, site string) ([]RunMetadata, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, site, started_at, total, completed, failed, average, interrupted
	FROM runs
	WHERE site = ?
	ORDER BY started_at DESC, id DESC
	`, site)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta      RunMetadata
			startedAt string
			average   sql.NullFloat64
		)
		if err := rows.Scan(&meta.ID, &meta.Site, &startedAt, &meta.Total, &meta.Completed, &meta.Failed, &average, &meta.Interrupted); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		meta.Average = math.NaN()
		if average.Valid {
			meta.Average = average.Float64
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// GetRunByID returns a stored run, or nil if there is none with that ID.
func (h *HistoryDB) GetRunByID(ctx context.Context, id int64) (*model.AggregateReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.AggregateReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &report, nil
}

// GetLatestRun returns the newest run of a site, or nil if there is none.
func (h *HistoryDB) GetLatestRun(ctx context.Context, site string) (*model.AggregateReport, error) {
	var id int64
	err := h.db.QueryRowContext(ctx, `
	SELECT id FROM runs WHERE site = ? ORDER BY started_at DESC, id DESC LIMIT 1
	`, site).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return h.GetRunByID(ctx, id)
}

// GetPageHistory returns the scores of one page of a site, newest first.
func (h *HistoryDB) GetPageHistory(ctx context.Context, site, pageKey string) ([]PageScore, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT r.id, r.started_at, p.score, p.audit_error
	FROM page_scores p
	JOIN runs r ON r.id = p.run_id
	WHERE r.site = ? AND p.page_key = ?
	ORDER BY r.started_at DESC, r.id DESC
	`, site, pageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer rows.Close()

	var results []PageScore
	for rows.Next() {
		var (
			ps        PageScore
			startedAt string
			score     sql.NullFloat64
			auditErr  sql.NullString
		)
		if err := rows.Scan(&ps.RunID, &startedAt, &score, &auditErr); err != nil {
			return nil, fmt.Errorf("failed to scan page score: %w", err)
		}
		ps.StartedAt = parseTimestamp(startedAt)
		ps.Score = model.NoScore
		if score.Valid {
			ps.Score = score.Float64
		}
		ps.AuditError = auditErr.String
		results = append(results, ps)
	}
	return results, rows.Err()
}

// DeleteRun removes a run and its page scores.
// It returns false if no run had that ID.
func (h *HistoryDB) DeleteRun(ctx context.Context, id int64) (bool, error) {
	result, err := h.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	return n > 0, nil
}

// nullableScore maps an undefined score to SQL NULL.
func nullableScore(score float64, defined bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: score, Valid: defined}
}

// formatTimestamp stores times as sortable UTC text.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
