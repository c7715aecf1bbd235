package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/glebarez/sqlite"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads (name, body) rows from a table. It works with any
// database/sql driver; the binaries use lib/pq and glebarez/sqlite.
//
// Expected shape:
//
//	CREATE TABLE documents (
//	    name TEXT PRIMARY KEY,
//	    body TEXT NOT NULL
//	);
type SQLSource struct {
	db     *sql.DB
	table  string
	driver string
}

func NewSQLSource(db *sql.DB, driver, table string) (*SQLSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", apperrors.ErrInvalidInput, table)
	}
	return &SQLSource{db: db, table: table, driver: driver}, nil
}

// OpenSQLite opens the SQLite database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return db, nil
}

func (s *SQLSource) Describe() string {
	return s.driver + ":" + s.table
}

func (s *SQLSource) Load(ctx context.Context) ([]RawFile, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name, body FROM %s ORDER BY name`, s.table))
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %w", apperrors.ErrCorpusUnreadable, s.table, err)
	}
	defer rows.Close()

	files := make([]RawFile, 0)
	for rows.Next() {
		var f RawFile
		if err := rows.Scan(&f.Name, &f.Text); err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %w", apperrors.ErrCorpusUnreadable, s.table, err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %w", apperrors.ErrCorpusUnreadable, s.table, err)
	}
	return files, nil
}
