package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lullaby-stack/care-engine/internal/models"
)

// SQLiteStore keeps day records in a single-file SQLite database. Nested
// event and block lists are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at filePath.
func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDay(date string) (models.DayRecord, bool, error) {
	row := s.db.QueryRow(`
		SELECT date, events, mom_blocks, dad_blocks, preferred_starts, manually_modified
		FROM days
		WHERE date = ?`,
		date,
	)
	rec, err := scanDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DayRecord{}, false, nil
	}
	if err != nil {
		return models.DayRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) SaveDay(rec models.DayRecord) error {
	return s.saveDay(s.db.Exec, rec)
}

// SaveDays writes every record inside one transaction.
func (s *SQLiteStore) SaveDays(recs []models.DayRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := s.saveDay(tx.Exec, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Range(from, to string) (map[string]models.DayRecord, error) {
	rows, err := s.db.Query(`
		SELECT date, events, mom_blocks, dad_blocks, preferred_starts, manually_modified
		FROM days
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.DayRecord)
	for rows.Next() {
		rec, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out[rec.Date] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type execFunc func(query string, args ...any) (sql.Result, error)

func (s *SQLiteStore) saveDay(exec execFunc, rec models.DayRecord) error {
	events, err := json.Marshal(rec.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	momBlocks, err := json.Marshal(rec.MomBlocks)
	if err != nil {
		return fmt.Errorf("encode mom blocks: %w", err)
	}
	dadBlocks, err := json.Marshal(rec.DadBlocks)
	if err != nil {
		return fmt.Errorf("encode dad blocks: %w", err)
	}
	preferred, err := json.Marshal(rec.PreferredSleepStart)
	if err != nil {
		return fmt.Errorf("encode preferred starts: %w", err)
	}

	_, err = exec(`
		INSERT OR REPLACE INTO days
		(date, events, mom_blocks, dad_blocks, preferred_starts, manually_modified, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Date,
		string(events),
		string(momBlocks),
		string(dadBlocks),
		string(preferred),
		boolToInt(rec.ManuallyModified),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (models.DayRecord, error) {
	var rec models.DayRecord
	var events, momBlocks, dadBlocks, preferred string
	var manuallyModified int
	if err := row.Scan(&rec.Date, &events, &momBlocks, &dadBlocks, &preferred, &manuallyModified); err != nil {
		return models.DayRecord{}, err
	}
	if err := json.Unmarshal([]byte(events), &rec.Events); err != nil {
		return models.DayRecord{}, fmt.Errorf("decode events: %w", err)
	}
	if err := json.Unmarshal([]byte(momBlocks), &rec.MomBlocks); err != nil {
		return models.DayRecord{}, fmt.Errorf("decode mom blocks: %w", err)
	}
	if err := json.Unmarshal([]byte(dadBlocks), &rec.DadBlocks); err != nil {
		return models.DayRecord{}, fmt.Errorf("decode dad blocks: %w", err)
	}
	if preferred != "" && preferred != "null" {
		if err := json.Unmarshal([]byte(preferred), &rec.PreferredSleepStart); err != nil {
			return models.DayRecord{}, fmt.Errorf("decode preferred starts: %w", err)
		}
	}
	rec.ManuallyModified = manuallyModified != 0
	return rec, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		CREATE TABLE IF NOT EXISTS days (
			date TEXT PRIMARY KEY,
			events TEXT NOT NULL,
			mom_blocks TEXT NOT NULL,
			dad_blocks TEXT NOT NULL,
			preferred_starts TEXT NOT NULL DEFAULT '{}',
			manually_modified INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
