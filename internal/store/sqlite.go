// Package store persists a run's reports to a flat SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/claims-cli/internal/model"
)

// ResultsFile is the database file name written into the output directory.
const ResultsFile = "results.db"

// SQLiteStore writes reports using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Each run replaces the previous contents; the file holds one run only.
const sqliteMigration = `
DROP TABLE IF EXISTS runs;
DROP TABLE IF EXISTS fill_metrics;
DROP TABLE IF EXISTS chain_recommendations;
DROP TABLE IF EXISTS common_quantities;

CREATE TABLE runs (
	id         TEXT PRIMARY KEY,
	stats      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE fill_metrics (
	npi         TEXT NOT NULL,
	ndc         TEXT NOT NULL,
	fills       INTEGER NOT NULL,
	reverted    INTEGER NOT NULL,
	avg_price   REAL NOT NULL,
	total_price REAL NOT NULL,
	PRIMARY KEY (npi, ndc)
);

CREATE TABLE chain_recommendations (
	ndc       TEXT NOT NULL,
	rank      INTEGER NOT NULL,
	chain     TEXT NOT NULL,
	avg_price REAL NOT NULL,
	PRIMARY KEY (ndc, rank)
);

CREATE TABLE common_quantities (
	ndc      TEXT NOT NULL,
	rank     INTEGER NOT NULL,
	quantity REAL NOT NULL,
	PRIMARY KEY (ndc, rank)
);
`

// Migrate recreates the result tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport writes the run and its three reports in one transaction.
func (s *SQLiteStore) SaveReport(ctx context.Context, runID string, stats any, r model.Report) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, stats, created_at) VALUES (?, ?, ?)`,
		runID, string(statsJSON), time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	if err := insertAll(ctx, tx,
		`INSERT INTO fill_metrics (npi, ndc, fills, reverted, avg_price, total_price) VALUES (?, ?, ?, ?, ?, ?)`,
		len(r.FillMetrics), func(i int) []any {
			m := r.FillMetrics[i]
			return []any{m.NPI, m.NDC, m.Fills, m.Reverted, m.AvgPrice, m.TotalPrice}
		}); err != nil {
		return eris.Wrap(err, "sqlite: insert fill metrics")
	}

	var chainRows [][]any
	for _, rec := range r.Recommendations {
		for rank, c := range rec.Chain {
			chainRows = append(chainRows, []any{rec.NDC, rank + 1, c.Name, c.AvgPrice})
		}
	}
	if err := insertAll(ctx, tx,
		`INSERT INTO chain_recommendations (ndc, rank, chain, avg_price) VALUES (?, ?, ?, ?)`,
		len(chainRows), func(i int) []any { return chainRows[i] }); err != nil {
		return eris.Wrap(err, "sqlite: insert chain recommendations")
	}

	var qtyRows [][]any
	for _, p := range r.Quantities {
		for rank, q := range p.MostPrescribedQuantity {
			qtyRows = append(qtyRows, []any{p.NDC, rank + 1, q})
		}
	}
	if err := insertAll(ctx, tx,
		`INSERT INTO common_quantities (ndc, rank, quantity) VALUES (?, ?, ?)`,
		len(qtyRows), func(i int) []any { return qtyRows[i] }); err != nil {
		return eris.Wrap(err, "sqlite: insert common quantities")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func insertAll(ctx context.Context, tx *sql.Tx, query string, n int, row func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	return nil
}
