package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists snapshots to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (ad-hoc queries while
	// the refresh job writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			loaded_at INTEGER NOT NULL,
			date      TEXT NOT NULL,
			commodity TEXT NOT NULL,
			price     REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_loaded ON price_snapshots(loaded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_price_commodity ON price_snapshots(commodity, date)`,

		`CREATE TABLE IF NOT EXISTS rainfall_snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			fetched_at    INTEGER NOT NULL,
			period        TEXT NOT NULL,
			state         TEXT NOT NULL,
			actual_mm     REAL,
			normal_mm     REAL,
			deviation_pct INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rainfall_fetched ON rainfall_snapshots(fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_rainfall_state ON rainfall_snapshots(state, period)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPrices(snap *PriceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO price_snapshots
		(loaded_at, date, commodity, price) VALUES (?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	loadedAt := snap.LoadedAt.Unix()
	for _, p := range snap.Series {
		if _, err := stmt.Exec(loadedAt, p.Date.Format("2006-01-02"), p.Commodity, p.Price); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordRainfall(snap *RainfallSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO rainfall_snapshots
		(fetched_at, period, state, actual_mm, normal_mm, deviation_pct)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	fetchedAt := snap.FetchedAt.Unix()
	for _, rec := range snap.Records {
		if _, err := stmt.Exec(fetchedAt, string(snap.Period), rec.State,
			nullFloat(rec.ActualMM), nullFloat(rec.NormalMM), nullInt(rec.DeviationPct)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
