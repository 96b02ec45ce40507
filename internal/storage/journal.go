// Package storage provides the optional SQLite journal behind the ledger
// engine. The engine writes through the journal before updating in-memory
// state and replays it at startup, so durable mode survives restarts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bookkeep/internal/core"
	"bookkeep/internal/ledger"
	applog "bookkeep/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteJournal struct {
	db *sql.DB
}

var _ ledger.Journal = (*SQLiteJournal)(nil)

func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// AppendEntry implements ledger.Journal.
func (j *SQLiteJournal) AppendEntry(ctx context.Context, seq uint64, entry core.LedgerEntry) error {
	items, err := json.Marshal(entry.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (company_name, seq, entry_date, store_name, total_cents, items)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.CompanyName, int64(seq), entry.Date, entry.StoreName, entry.Total.Cents, string(items))
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	slog.DebugContext(ctx, "Ledger entry journaled",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldCompany, entry.CompanyName,
		applog.FieldSeq, seq,
		applog.FieldTotalCents, entry.Total.Cents)
	return nil
}

// MarkReviewed implements ledger.Journal.
func (j *SQLiteJournal) MarkReviewed(ctx context.Context, companyName string, through uint64) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE ledger_entries SET reviewed = 1
		 WHERE company_name = ? AND seq <= ? AND reviewed = 0`,
		companyName, int64(through))
	if err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		slog.DebugContext(ctx, "Journaled review",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldCompany, companyName,
			applog.FieldSeq, through,
			"rows", n)
	}
	return nil
}

// Replay implements ledger.Journal, returning records in append (rowid) order.
func (j *SQLiteJournal) Replay(ctx context.Context) ([]ledger.Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT company_name, seq, entry_date, store_name, total_cents, items, reviewed
		 FROM ledger_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var (
			rec      ledger.Record
			seq      int64
			items    string
			reviewed int64
		)
		err := rows.Scan(&rec.Entry.CompanyName, &seq, &rec.Entry.Date,
			&rec.Entry.StoreName, &rec.Entry.Total.Cents, &items, &reviewed)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &rec.Entry.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		rec.Seq = uint64(seq)
		rec.Reviewed = reviewed != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	slog.InfoContext(ctx, "Journal replayed",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpReplay,
		applog.FieldEntries, len(records))
	return records, nil
}
