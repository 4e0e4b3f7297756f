// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	// DuckDB driver - reads dated CSV exports and the partitioned fallback table
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cfrecall/internal/recall"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DuckDBConfig configures a DuckDBSource.
type DuckDBConfig struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string

	// CSVDir holds the dated exports. Empty disables the file lookup.
	CSVDir string

	// FilePattern names an export; {date} is replaced with YYYYMMDD.
	FilePattern string

	// Table is queried when no export exists for the date. Empty disables it.
	Table string

	UserColumn   string
	ItemColumn   string
	SignalColumn string
	DateColumn   string

	// RowLimit caps the table query.
	RowLimit int

	// QueryTimeout bounds one Fetch.
	QueryTimeout time.Duration
}

func (c *DuckDBConfig) validate() error {
	cols := []string{c.UserColumn, c.ItemColumn, c.SignalColumn, c.DateColumn}
	if c.Table != "" {
		cols = append(cols, c.Table)
	}
	for _, col := range cols {
		if !identifierPattern.MatchString(col) {
			return fmt.Errorf("invalid identifier %q", col)
		}
	}
	if c.CSVDir != "" && !strings.Contains(c.FilePattern, "{date}") {
		return fmt.Errorf("file pattern %q must contain {date}", c.FilePattern)
	}
	if c.RowLimit < 1 {
		return fmt.Errorf("row limit must be positive")
	}
	return nil
}

// DuckDBSource reads daily interactions through DuckDB.
type DuckDBSource struct {
	cfg    DuckDBConfig
	db     *sql.DB
	logger zerolog.Logger
}

// NewDuckDBSource opens the DuckDB database described by cfg.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDuckDBSource(cfg DuckDBConfig, logger zerolog.Logger) (*DuckDBSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("feed config: %w", err)
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", cfg.Path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &DuckDBSource{
		cfg:    cfg,
		db:     db,
		logger: logger.With().Str("component", "feed").Logger(),
	}, nil
}

// DB exposes the underlying handle, used to seed tables.
func (s *DuckDBSource) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *DuckDBSource) Close() error { return s.db.Close() }

// FilePath returns the export path for date, or "" when no CSV dir is set.
func (s *DuckDBSource) FilePath(date string) string {
	if s.cfg.CSVDir == "" {
		return ""
	}
	return filepath.Join(s.cfg.CSVDir, strings.ReplaceAll(s.cfg.FilePattern, "{date}", date))
}

// Fetch implements Source.
func (s *DuckDBSource) Fetch(ctx context.Context, date string) (Batch, error) {
	if _, err := ParseDate(date); err != nil {
		return Batch{}, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	if path := s.FilePath(date); path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			return s.query(ctx, date, path, s.csvQuery(path))
		case !errors.Is(err, os.ErrNotExist):
			return Batch{}, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if s.cfg.Table != "" {
		return s.query(ctx, date, s.cfg.Table, s.tableQuery(), date)
	}

	s.logger.Debug().Str("date", date).Msg("no feed configured for date")
	return Batch{Date: date, Source: "none"}, nil
}

func (s *DuckDBSource) selectList() string {
	return fmt.Sprintf(`CAST(%q AS VARCHAR), CAST(%q AS VARCHAR), TRY_CAST(%q AS DOUBLE)`,
		s.cfg.UserColumn, s.cfg.ItemColumn, s.cfg.SignalColumn)
}

func (s *DuckDBSource) csvQuery(path string) string {
	literal := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	return fmt.Sprintf(`SELECT %s FROM read_csv_auto(%s, header = true)`, s.selectList(), literal)
}

func (s *DuckDBSource) tableQuery() string {
	return fmt.Sprintf(`SELECT %s FROM %q WHERE CAST(%q AS VARCHAR) = ? LIMIT %d`,
		s.selectList(), s.cfg.Table, s.cfg.DateColumn, s.cfg.RowLimit)
}

func (s *DuckDBSource) query(ctx context.Context, date, source, query string, args ...any) (Batch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Batch{}, fmt.Errorf("query %s: %w", source, err)
	}
	defer rows.Close()

	batch := Batch{Date: date, Source: source}
	for rows.Next() {
		var user, item sql.NullString
		var signal sql.NullFloat64
		if err := rows.Scan(&user, &item, &signal); err != nil {
			return Batch{}, fmt.Errorf("scan %s: %w", source, err)
		}
		if !user.Valid || !item.Valid || !signal.Valid ||
			strings.TrimSpace(user.String) == "" || strings.TrimSpace(item.String) == "" {
			batch.Skipped++
			continue
		}
		batch.Interactions = append(batch.Interactions, recall.Interaction{
			UserID: user.String,
			ItemID: item.String,
			Signal: signal.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return Batch{}, fmt.Errorf("read %s: %w", source, err)
	}

	s.logger.Info().
		Str("date", date).
		Str("source", source).
		Int("rows", len(batch.Interactions)).
		Int("skipped", batch.Skipped).
		Msg("feed fetched")

	return batch, nil
}
