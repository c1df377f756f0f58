// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a history of reads in SQLite: one row per read and
// one row per projected node, in emission order.
package store

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
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/logging"
	"github.com/pdiddy/scinode/pkg/types"
)

// ErrNotFound is returned when no read matches an id.
var ErrNotFound = errors.New("read not found")

// ErrAmbiguous is returned when an id prefix matches more than one read.
var ErrAmbiguous = errors.New("read id prefix is ambiguous")

// Store manages the history database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logging.OrNop(logger), now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
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
		`CREATE TABLE IF NOT EXISTS reads (
			id TEXT PRIMARY KEY,
			file TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			nodes INTEGER NOT NULL DEFAULT 0,
			error_path TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			read_id TEXT NOT NULL REFERENCES reads(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (read_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reads_file ON reads(file)`,
		`CREATE INDEX IF NOT EXISTS idx_reads_started ON reads(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// ReadRecord is one stored read.
type ReadRecord struct {
	ID           string           `json:"id" yaml:"id"`
	File         string           `json:"file" yaml:"file"`
	Status       types.ReadStatus `json:"status" yaml:"status"`
	Nodes        int              `json:"nodes" yaml:"nodes"`
	ErrorPath    string           `json:"errorPath,omitempty" yaml:"errorPath,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	StartedAt    time.Time        `json:"startedAt" yaml:"startedAt"`
	CompletedAt  time.Time        `json:"completedAt,omitzero" yaml:"completedAt,omitempty"`
}

// NodeRecord is one stored node of a read.
type NodeRecord struct {
	Path string              `json:"path" yaml:"path"`
	Node types.ProjectedNode `json:"node" yaml:"node"`
}

// Recorder stores the events of one event stream. Reads in a stream are
// sequential: a read starts at showName, or at readComplete for a file no
// capability recognized, and ends at readComplete. A Recorder is not safe
// for concurrent use.
type Recorder struct {
	s   *Store
	ctx context.Context

	id  string
	seq int
}

// Recorder returns a recorder writing to s.
func (s *Store) Recorder(ctx context.Context) *Recorder {
	return &Recorder{s: s, ctx: ctx}
}

// Current returns the id of the read in progress, or the empty string.
func (r *Recorder) Current() string { return r.id }

// Handle implements sink.Sink.
func (r *Recorder) Handle(ev types.Event) error {
	switch data := ev.Data.(type) {
	case string:
		if ev.Command != types.EventShowName {
			return nil
		}
		return r.begin(data)
	case types.NodeContent:
		if r.id == "" {
			return fmt.Errorf("node %s outside of a read", data.Path)
		}
		body, err := json.Marshal(data.Node)
		if err != nil {
			return fmt.Errorf("encoding node %s: %w", data.Path, err)
		}
		_, err = r.s.db.ExecContext(r.ctx,
			`INSERT INTO nodes (read_id, seq, path, name, body) VALUES (?, ?, ?, ?, ?)`,
			r.id, r.seq, data.Path, data.Node.Name, string(body))
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", data.Path, err)
		}
		r.seq++
		return nil
	case types.ReadError:
		if r.id == "" {
			if err := r.begin(data.File); err != nil {
				return err
			}
		}
		_, err := r.s.db.ExecContext(r.ctx,
			`UPDATE reads SET error_path = ?, error_message = ? WHERE id = ?`,
			data.Path, data.Message, r.id)
		if err != nil {
			return fmt.Errorf("recording error of %s: %w", data.File, err)
		}
		return nil
	case types.ReadSummary:
		if r.id == "" {
			if err := r.begin(data.File); err != nil {
				return err
			}
		}
		_, err := r.s.db.ExecContext(r.ctx,
			`UPDATE reads SET status = ?, nodes = ?, completed_at = ? WHERE id = ?`,
			string(data.Status), data.Nodes, formatTime(r.s.now()), r.id)
		if err != nil {
			return fmt.Errorf("completing read of %s: %w", data.File, err)
		}
		r.s.logger.Debug("read stored", zap.String("id", r.id), zap.String("file", data.File))
		r.id, r.seq = "", 0
		return nil
	default:
		return nil
	}
}

func (r *Recorder) begin(file string) error {
	id := uuid.NewString()
	_, err := r.s.db.ExecContext(r.ctx,
		`INSERT INTO reads (id, file, started_at) VALUES (?, ?, ?)`,
		id, file, formatTime(r.s.now()))
	if err != nil {
		return fmt.Errorf("inserting read of %s: %w", file, err)
	}
	r.id, r.seq = id, 0
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	File   string
	Status types.ReadStatus
	Limit  int
}

const defaultListLimit = 50

// List returns stored reads, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]ReadRecord, error) {
	query := `SELECT id, file, status, nodes, error_path, error_message, started_at, completed_at FROM reads WHERE 1=1`
	var args []any
	if opts.File != "" {
		query += ` AND file = ?`
		args = append(args, opts.File)
	}
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reads: %w", err)
	}
	defer rows.Close()

	var out []ReadRecord
	for rows.Next() {
		rec, err := scanRead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns the read whose id is id or starts with id.
func (s *Store) Get(ctx context.Context, id string) (ReadRecord, error) {
	if id == "" {
		return ReadRecord{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file, status, nodes, error_path, error_message, started_at, completed_at
		 FROM reads WHERE id = ? OR substr(id, 1, length(?)) = ? LIMIT 2`, id, id, id)
	if err != nil {
		return ReadRecord{}, fmt.Errorf("querying read %s: %w", id, err)
	}
	defer rows.Close()

	var found []ReadRecord
	for rows.Next() {
		rec, err := scanRead(rows)
		if err != nil {
			return ReadRecord{}, err
		}
		if rec.ID == id {
			return rec, nil
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return ReadRecord{}, err
	}
	switch len(found) {
	case 0:
		return ReadRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return ReadRecord{}, fmt.Errorf("%s: %w", id, ErrAmbiguous)
	}
}

// Nodes returns the nodes of a read in emission order.
func (s *Store) Nodes(ctx context.Context, readID string) ([]NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, body FROM nodes WHERE read_id = ? ORDER BY seq`, readID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes of %s: %w", readID, err)
	}
	defer rows.Close()

	var out []NodeRecord
	for rows.Next() {
		var rec NodeRecord
		var body string
		if err := rows.Scan(&rec.Path, &body); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &rec.Node); err != nil {
			return nil, fmt.Errorf("decoding node %s: %w", rec.Path, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a read and its nodes.
func (s *Store) Delete(ctx context.Context, readID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reads WHERE id = ?`, readID)
	if err != nil {
		return fmt.Errorf("deleting read %s: %w", readID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", readID, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRead(sc scanner) (ReadRecord, error) {
	var rec ReadRecord
	var status, started, completed string
	if err := sc.Scan(&rec.ID, &rec.File, &status, &rec.Nodes, &rec.ErrorPath, &rec.ErrorMessage, &started, &completed); err != nil {
		return ReadRecord{}, fmt.Errorf("scanning read: %w", err)
	}
	rec.Status = types.ReadStatus(status)
	rec.StartedAt = parseTime(started)
	rec.CompletedAt = parseTime(completed)
	return rec, nil
}

// timeLayout is fixed-width so timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
