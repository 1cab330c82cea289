// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists learned facts in a SQLite database with a
// full-text index over fact objects, and records every learn run.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/astro-facts/internal/rdf"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "facts.db"

	// timeLayout has a fixed width so stored times sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the facts database.
type Store struct {
	db           *sql.DB
	knowledgeDir string
	maxResults   int

	// fts is false when the sqlite3 driver was built without FTS5; text
	// queries then fall back to LIKE.
	fts bool
}

// NewStore opens or creates the database at knowledgeDir/index/facts.db and
// creates the schema if it does not exist.
func NewStore(cfg types.KnowledgeBaseConfig) (*Store, error) {
	knowledgeDir := cfg.KnowledgeDir
	if knowledgeDir == "" {
		knowledgeDir = "knowledge"
	}
	dbDir := filepath.Join(knowledgeDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating index directory")
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, knowledgeDir: knowledgeDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	return filepath.Join(s.knowledgeDir, indexDir, dbFile)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			input_types TEXT,
			workers INTEGER,
			inputs INTEGER,
			retained INTEGER,
			boring INTEGER,
			failed INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			kind TEXT NOT NULL,
			run_id TEXT REFERENCES runs(id),
			UNIQUE(subject, predicate, object)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_subject ON facts(subject)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_predicate ON facts(predicate)`,
		`CREATE TABLE IF NOT EXISTS subjects (
			subject TEXT PRIMARY KEY,
			run_id TEXT REFERENCES runs(id),
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "executing schema statement")
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='facts_fts'`,
	).Scan(&ftsExists); err != nil {
		return errors.Wrap(err, "checking FTS table")
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE facts_fts USING fts5(object, content=facts, content_rowid=rowid)`,
		`CREATE TRIGGER facts_ai AFTER INSERT ON facts BEGIN
			INSERT INTO facts_fts(rowid, object) VALUES (new.rowid, new.object);
		END`,
		`CREATE TRIGGER facts_ad AFTER DELETE ON facts BEGIN
			INSERT INTO facts_fts(facts_fts, rowid, object) VALUES('delete', old.rowid, old.object);
		END`,
		`CREATE TRIGGER facts_au AFTER UPDATE ON facts BEGIN
			INSERT INTO facts_fts(facts_fts, rowid, object) VALUES('delete', old.rowid, old.object);
			INSERT INTO facts_fts(rowid, object) VALUES (new.rowid, new.object);
		END`,
	}
	if _, err := s.db.Exec(ftsStatements[0]); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return errors.Wrap(err, "creating FTS table")
	}
	for _, stmt := range ftsStatements[1:] {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "creating FTS triggers")
		}
	}
	s.fts = true
	return nil
}

// Run describes one learn (or ingest) run.
type Run struct {
	ID         string            `json:"id" yaml:"id"`
	StartedAt  time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time         `json:"finished_at" yaml:"finished_at"`
	InputTypes []types.InputType `json:"input_types" yaml:"input_types"`
	Workers    int               `json:"workers" yaml:"workers"`
	Stats      types.RunStats    `json:"stats" yaml:"stats"`
}

// NewRun starts a run with a fresh id.
func NewRun(inputTypes []types.InputType, workers int) Run {
	return Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		InputTypes: inputTypes,
		Workers:    workers,
	}
}

// SaveSummary counts what a save wrote.
type SaveSummary struct {
	Subjects int
	Facts    int
}

// SaveRun records run and stores the retained facts of result. The facts of
// a subject learned again replace the ones stored before. Boring subjects
// are not stored.
func (s *Store) SaveRun(ctx context.Context, run Run, result workflow.RunResult) (SaveSummary, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	run.Stats = result.Stats
	return s.save(ctx, run, result.Facts)
}

func (s *Store) save(ctx context.Context, run Run, facts workflow.AggregateResult) (SaveSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveSummary{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	inputTypes := make([]string, len(run.InputTypes))
	for i, t := range run.InputTypes {
		inputTypes[i] = string(t)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, input_types, workers, inputs, retained, boring, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.FinishedAt.Format(timeLayout),
		strings.Join(inputTypes, ","), run.Workers,
		run.Stats.Inputs, run.Stats.Retained, run.Stats.Boring, run.Stats.Failed,
	)
	if err != nil {
		return SaveSummary{}, errors.Wrap(err, "inserting run")
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO facts (subject, predicate, object, kind, run_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return SaveSummary{}, errors.Wrap(err, "preparing insert")
	}
	defer insert.Close()

	var summary SaveSummary
	now := time.Now().UTC().Format(timeLayout)
	for _, subject := range facts.Subjects() {
		fs := facts[subject]
		if len(fs) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM facts WHERE subject = ?`, subject); err != nil {
			return SaveSummary{}, errors.Wrapf(err, "deleting old facts of %s", subject)
		}
		for _, f := range fs {
			res, err := insert.ExecContext(ctx, f.Subject, f.Predicate, f.Object.Lexical, string(f.Object.Kind), run.ID)
			if err != nil {
				return SaveSummary{}, errors.Wrapf(err, "inserting %s", f)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				summary.Facts++
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subjects (subject, run_id, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(subject) DO UPDATE SET run_id=excluded.run_id, updated_at=excluded.updated_at`,
			subject, run.ID, now)
		if err != nil {
			return SaveSummary{}, errors.Wrapf(err, "updating subject %s", subject)
		}
		summary.Subjects++
	}

	if err := tx.Commit(); err != nil {
		return SaveSummary{}, errors.Wrap(err, "committing")
	}
	return summary, nil
}

// IngestN3 loads a Turtle knowledge file, such as one written by learn, as one
// run. Triples whose predicate is outside the ontology namespace are
// skipped and reported on w.
func (s *Store) IngestN3(ctx context.Context, r io.Reader, w io.Writer) (SaveSummary, error) {
	g, err := rdf.Parse(r)
	if err != nil {
		return SaveSummary{}, errors.Wrap(err, "parsing knowledge file")
	}

	facts := workflow.AggregateResult{}
	skipped := 0
	for _, t := range g.Triples() {
		pred, ok := strings.CutPrefix(t.Predicate, types.OntologyNS)
		if !ok {
			fmt.Fprintf(w, "skipped %s: predicate outside %s\n", t, types.OntologyNS)
			skipped++
			continue
		}
		obj := t.Object
		if obj.Kind == types.KindString {
			obj = workflow.StringLiteral(obj.Lexical)
		}
		facts[t.Subject] = append(facts[t.Subject], types.Fact{Subject: t.Subject, Predicate: pred, Object: obj})
	}

	run := NewRun(nil, 0)
	run.FinishedAt = time.Now().UTC()
	run.Stats = types.RunStats{Inputs: len(facts), Retained: len(facts), Facts: g.Len() - skipped}

	summary, err := s.save(ctx, run, facts)
	if err != nil {
		return SaveSummary{}, err
	}
	fmt.Fprintf(w, "ingested %d facts about %d subjects (run %s)\n", summary.Facts, summary.Subjects, run.ID)
	return summary, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, finished_at, input_types, workers, inputs, retained, boring, failed
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			inputTypes        sql.NullString
			workers, inputs   sql.NullInt64
			retained, boring  sql.NullInt64
			failed            sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &inputTypes, &workers,
			&inputs, &retained, &boring, &failed); err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		if inputTypes.String != "" {
			for _, t := range strings.Split(inputTypes.String, ",") {
				r.InputTypes = append(r.InputTypes, types.InputType(t))
			}
		}
		r.Workers = int(workers.Int64)
		r.Stats = types.RunStats{
			Inputs:   int(inputs.Int64),
			Retained: int(retained.Int64),
			Boring:   int(boring.Int64),
			Failed:   int(failed.Int64),
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
