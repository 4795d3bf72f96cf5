// Package store loads validated fixed-width records into SQLite, one table
// per line type.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/dertin/rsapar/pkg/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var ErrUnknownLineType = errors.New("unknown line type")

const loadsTable = `
CREATE TABLE IF NOT EXISTS loads (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	loaded_at TEXT NOT NULL,
	records INTEGER NOT NULL,
	skipped INTEGER NOT NULL
);`

type Store struct {
	db     *sql.DB
	schema *schema.Schema
	log    *zap.Logger
}

// LoadResult summarises one Load call.
type LoadResult struct {
	ID      string
	Records int
	Skipped int
	Counts  map[string]int
}

// Open opens (or creates) the database at dsn and the tables for s.
func Open(dsn string, s *schema.Schema, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; in-memory databases are per connection
	db.SetMaxOpenConns(1)

	st := &Store{db: db, schema: s, log: logger}
	if err := st.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) initialize() error {
	stmts := []string{loadsTable}
	for _, line := range s.schema.Lines() {
		stmts = append(stmts, createTable(line))
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func createTable(line schema.Line) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n\tload_id TEXT NOT NULL REFERENCES loads(id),\n\tline_number INTEGER NOT NULL", quote(line.LineType))
	for _, cell := range line.Cells {
		fmt.Fprintf(&sb, ",\n\t%s TEXT", quote(cell.Name))
	}
	sb.WriteString(",\n\tPRIMARY KEY (load_id, line_number)\n);")
	return sb.String()
}

func insertStatement(line schema.Line) string {
	cols := []string{"load_id", "line_number"}
	for _, cell := range line.Cells {
		cols = append(cols, quote(cell.Name))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(line.LineType), strings.Join(cols, ", "), marks)
}

// Load inserts every valid record in a single transaction. Invalid lines
// are skipped; any other error rolls the load back.
func (s *Store) Load(ctx context.Context, source string, records iter.Seq2[*schema.Record, error]) (LoadResult, error) {
	res := LoadResult{ID: uuid.NewString(), Counts: make(map[string]int)}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// the loads row goes first so line rows can reference it
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO loads (id, source, loaded_at, records, skipped) VALUES (?, ?, ?, 0, 0)`,
		res.ID, source, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return res, fmt.Errorf("failed to insert load: %w", err)
	}

	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	for rec, err := range records {
		if err != nil {
			var lineErr *schema.LineError
			if errors.As(err, &lineErr) {
				res.Skipped++
				s.log.Warn("skipping invalid line", zap.Int("line", lineErr.Number), zap.String("reason", lineErr.Message))
				continue
			}
			return res, err
		}

		stmt, ok := stmts[rec.LineType]
		if !ok {
			line := s.schema.LineByType(rec.LineType)
			if line == nil {
				return res, fmt.Errorf("%w: %s", ErrUnknownLineType, rec.LineType)
			}
			stmt, err = tx.PrepareContext(ctx, insertStatement(*line))
			if err != nil {
				return res, fmt.Errorf("failed to prepare insert for %s: %w", rec.LineType, err)
			}
			stmts[rec.LineType] = stmt
		}

		args := make([]any, 0, len(rec.Cells)+2)
		args = append(args, res.ID, rec.Number)
		for _, c := range rec.Cells {
			args = append(args, c.Value)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return res, fmt.Errorf("failed to insert line %d: %w", rec.Number, err)
		}
		res.Records++
		res.Counts[rec.LineType]++
	}

	if _, err := tx.ExecContext(ctx, `UPDATE loads SET records = ?, skipped = ? WHERE id = ?`,
		res.Records, res.Skipped, res.ID); err != nil {
		return res, fmt.Errorf("failed to update load: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit load: %w", err)
	}

	s.log.Info("loaded",
		zap.String("load_id", res.ID),
		zap.String("source", source),
		zap.Int("records", res.Records),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// Count returns the number of rows of a line type across all loads.
func (s *Store) Count(ctx context.Context, lineType string) (int, error) {
	if s.schema.LineByType(lineType) == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLineType, lineType)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(lineType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", lineType, err)
	}
	return n, nil
}

// LoadInfo is one row of the loads table.
type LoadInfo struct {
	ID       string
	Source   string
	LoadedAt time.Time
	Records  int
	Skipped  int
}

// Loads lists the recorded loads, newest first.
func (s *Store) Loads(ctx context.Context) ([]LoadInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, loaded_at, records, skipped FROM loads ORDER BY loaded_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query loads: %w", err)
	}
	defer rows.Close()

	var loads []LoadInfo
	for rows.Next() {
		var (
			l        LoadInfo
			loadedAt string
		)
		if err := rows.Scan(&l.ID, &l.Source, &loadedAt, &l.Records, &l.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		if l.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
			return nil, fmt.Errorf("failed to parse load time %q: %w", loadedAt, err)
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

// Rows returns the cell values of one load and line type in line order.
func (s *Store) Rows(ctx context.Context, loadID, lineType string) ([]schema.Record, error) {
	line := s.schema.LineByType(lineType)
	if line == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLineType, lineType)
	}

	cols := make([]string, 0, len(line.Cells))
	for _, cell := range line.Cells {
		cols = append(cols, quote(cell.Name))
	}
	query := fmt.Sprintf("SELECT line_number, %s FROM %s WHERE load_id = ? ORDER BY line_number",
		strings.Join(cols, ", "), quote(lineType))
	rows, err := s.db.QueryContext(ctx, query, loadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", lineType, err)
	}
	defer rows.Close()

	var out []schema.Record
	for rows.Next() {
		rec := schema.Record{LineType: lineType, Cells: make([]schema.CellValue, len(line.Cells))}
		dest := make([]any, 0, len(line.Cells)+1)
		dest = append(dest, &rec.Number)
		for i, cell := range line.Cells {
			rec.Cells[i].Name = cell.Name
			dest = append(dest, &rec.Cells[i].Value)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", lineType, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
