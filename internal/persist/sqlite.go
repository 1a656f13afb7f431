package persist

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteProvider stores encoded states in a SQLite table
type SQLiteProvider struct {
	db    *sql.DB
	key   string
	codec *Codec
}

// NewSQLiteProvider opens (and creates if needed) the database at path
func NewSQLiteProvider(path, key string) (*SQLiteProvider, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state schema: %w", err)
	}

	codec, err := NewCodec()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteProvider{db: db, key: key, codec: codec}, nil
}

// Read loads the state stored under the provider key
func (p *SQLiteProvider) Read() (*State, error) {
	var blob []byte
	err := p.db.QueryRow(`SELECT data FROM filter_state WHERE key = ?`, p.key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return p.codec.Decode(blob)
}

// Write stores s under the provider key
func (p *SQLiteProvider) Write(s State) error {
	blob, err := p.codec.Encode(s)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`
		INSERT INTO filter_state (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		p.key, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *SQLiteProvider) Close() error {
	_ = p.codec.Close()
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
