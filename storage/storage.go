package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Well-known keys. Each one has exactly one writing owner.
const (
	DraftKey = "TS_FORM_DRAFT"
	QueueKey = "TS_SEND_QUEUE_V1"
)

// Store is the local persistence the draft store and the send queue sit on:
// a flat string-to-string map with durable writes.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// DB is the sqlite-backed Store.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set journal mode")
	}

	// db tuning options
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return &DB{db: db}, nil
}

func (s *DB) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	return value, true, nil
}

func (s *DB) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return errors.Wrapf(err, "set %q", key)
}

func (s *DB) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return errors.Wrapf(err, "delete %q", key)
}

func (s *DB) Close() error {
	return s.db.Close()
}
