package archive

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/verasca/lociq/internal/conversation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a lookup matches no archived turn.
var ErrNotFound = errors.New("not found")

// Archive is a write-behind record of completed turns. The live conversation
// never reads from it; every daemon start begins from the seed turn. It feeds
// the history surfaces only.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Archive, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "lociq.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (a *Archive) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := a.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := a.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := a.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (a *Archive) AppliedMigrations() ([]int, error) {
	rows, err := a.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SaveTurn records a completed turn. Citations and follow-ups are stored as
// JSON text columns.
func (a *Archive) SaveTurn(t conversation.Turn) error {
	citations, err := json.Marshal(t.Citations)
	if err != nil {
		return fmt.Errorf("encoding citations: %w", err)
	}
	followUps, err := json.Marshal(t.FollowUps)
	if err != nil {
		return fmt.Errorf("encoding follow-ups: %w", err)
	}

	_, err = a.db.Exec(`
		INSERT INTO turns (id, asked_at, query, overview_gene, overview_qtl, overview_relation, citations, follow_ups)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AskedAt.UTC().Format(time.RFC3339), t.Query,
		t.Overview.Gene, t.Overview.QTL, t.Overview.Relation,
		string(citations), string(followUps),
	)
	return err
}

// GetTurn returns a single archived turn by id, or ErrNotFound.
func (a *Archive) GetTurn(id string) (conversation.Turn, error) {
	row := a.db.QueryRow(`
		SELECT id, asked_at, query, overview_gene, overview_qtl, overview_relation, citations, follow_ups
		FROM turns WHERE id = ?`, id,
	)
	t, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return conversation.Turn{}, ErrNotFound
	}
	return t, err
}

// ListTurns returns archived turns newest first.
func (a *Archive) ListTurns(limit, offset int) ([]conversation.Turn, error) {
	rows, err := a.db.Query(`
		SELECT id, asked_at, query, overview_gene, overview_qtl, overview_relation, citations, follow_ups
		FROM turns ORDER BY asked_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []conversation.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// CountTurns returns the total number of archived turns.
func (a *Archive) CountTurns() (int, error) {
	var n int
	err := a.db.QueryRow("SELECT COUNT(*) FROM turns").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(row scanner) (conversation.Turn, error) {
	var t conversation.Turn
	var askedAt, citations, followUps string
	if err := row.Scan(&t.ID, &askedAt, &t.Query,
		&t.Overview.Gene, &t.Overview.QTL, &t.Overview.Relation,
		&citations, &followUps); err != nil {
		return conversation.Turn{}, err
	}

	ts, err := time.Parse(time.RFC3339, askedAt)
	if err != nil {
		return conversation.Turn{}, fmt.Errorf("parsing asked_at: %w", err)
	}
	t.AskedAt = ts

	if err := json.Unmarshal([]byte(citations), &t.Citations); err != nil {
		return conversation.Turn{}, fmt.Errorf("decoding citations: %w", err)
	}
	if err := json.Unmarshal([]byte(followUps), &t.FollowUps); err != nil {
		return conversation.Turn{}, fmt.Errorf("decoding follow-ups: %w", err)
	}
	return t, nil
}
