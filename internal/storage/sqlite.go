package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS programs (
	name     TEXT PRIMARY KEY,
	content  TEXT NOT NULL,
	modified INTEGER NOT NULL
)`

// SQLiteDrive stores entries in a SQLite database.
type SQLiteDrive struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteDrive opens or creates the database at path. Use ":memory:"
// for a private in-memory database.
func OpenSQLiteDrive(ctx context.Context, path string) (*SQLiteDrive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and avoids
	// writer contention on file databases.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	return &SQLiteDrive{db: db, now: time.Now}, nil
}

var _ Drive = (*SQLiteDrive)(nil)

// Close closes the database.
func (d *SQLiteDrive) Close() error {
	return d.db.Close()
}

func (d *SQLiteDrive) Delete(ctx context.Context, name string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM programs WHERE name = ?`, name)
	if err != nil {
		return &PathError{Op: "delete", Name: name, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &PathError{Op: "delete", Name: name, Err: err}
	}
	if n == 0 {
		return notFound("delete", name)
	}
	return nil
}

func (d *SQLiteDrive) Enumerate(ctx context.Context) (map[string]Metadata, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, modified, length(CAST(content AS BLOB)) FROM programs`)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Metadata)
	for rows.Next() {
		var (
			name     string
			modified int64
			length   int64
		)
		if err := rows.Scan(&name, &modified, &length); err != nil {
			return nil, fmt.Errorf("enumerate: %w", err)
		}
		out[name] = Metadata{Date: time.Unix(modified, 0), Length: length}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	return out, nil
}

func (d *SQLiteDrive) Get(ctx context.Context, name string) (string, error) {
	var content string
	err := d.db.QueryRowContext(ctx, `SELECT content FROM programs WHERE name = ?`, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("get", name)
	}
	if err != nil {
		return "", &PathError{Op: "get", Name: name, Err: err}
	}
	return content, nil
}

func (d *SQLiteDrive) Put(ctx context.Context, name, content string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO programs (name, content, modified) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET content = excluded.content, modified = excluded.modified`,
		name, content, d.now().Unix())
	if err != nil {
		return &PathError{Op: "put", Name: name, Err: err}
	}
	return nil
}
