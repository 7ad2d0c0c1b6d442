package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/additivelens/additivelens/internal/model"
)

// identifier accepts plain or schema-qualified table names
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads active catalog rows from a table shaped like:
//
//	id text primary key, name text, hazard_level text,
//	description_short text, description_full text,
//	aliases text[], is_active boolean
type PostgresSource struct {
	db     *sql.DB
	query  string
	logger *slog.Logger
}

// NewPostgresSource opens a pgx-backed pool. No connection is made until the
// first fetch.
func NewPostgresSource(dsn, table string, logger *slog.Logger) (*PostgresSource, error) {
	query, err := buildQuery(table)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	return newPostgresSource(db, query, logger), nil
}

func newPostgresSource(db *sql.DB, query string, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{
		db:     db,
		query:  query,
		logger: logger.With("system", "database"),
	}
}

func buildQuery(table string) (string, error) {
	if table == "" {
		table = "additives"
	}
	if !identifier.MatchString(table) {
		return "", fmt.Errorf("invalid table name: %q", table)
	}
	return fmt.Sprintf(`SELECT id, name, COALESCE(hazard_level, ''),
       COALESCE(description_short, ''), COALESCE(description_full, ''),
       to_json(COALESCE(aliases, '{}'::text[]))::text
  FROM %s
 WHERE COALESCE(is_active, true)
 ORDER BY id`, table), nil
}

// Name returns the source name
func (s *PostgresSource) Name() string { return KindPostgres }

// FetchAll selects every active row
func (s *PostgresSource) FetchAll(ctx context.Context) ([]model.AdditiveEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []model.AdditiveEntry
	for rows.Next() {
		var (
			e       model.AdditiveEntry
			hazard  string
			aliases string
		)
		if err := rows.Scan(&e.ID, &e.Name, &hazard, &e.DescriptionShort, &e.DescriptionFull, &aliases); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		e.HazardLevel = model.HazardLevel(hazard)
		if err := json.Unmarshal([]byte(aliases), &e.Aliases); err != nil {
			return nil, fmt.Errorf("decode aliases of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}

	s.logger.Debug("catalog rows fetched", "rows", len(entries))
	return entries, nil
}

// Close closes the connection pool
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
