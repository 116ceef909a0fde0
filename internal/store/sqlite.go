package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"strategist/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteLedger keeps consultations in a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer at a time avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS consultations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		query TEXT NOT NULL,
		code TEXT NOT NULL,
		status INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_consultations_created ON consultations(created_at);
	`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) Record(ctx context.Context, c *model.Consultation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO consultations (request_id, query, code, status, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.RequestID, c.Query, c.Code, c.Status, c.LatencyMS, c.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

func (l *SQLiteLedger) Recent(ctx context.Context, limit int) ([]model.Consultation, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, request_id, query, code, status, latency_ms, created_at FROM consultations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	var out []model.Consultation
	for rows.Next() {
		var c model.Consultation
		var created int64
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Query, &c.Code, &c.Status, &c.LatencyMS, &created); err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		c.CreatedAt = time.UnixMilli(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error { return l.db.Close() }
