// Package gradestore keeps a log of every completed grade reading, it is
// independent from the comparison baseline kept by the state package.
package gradestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Open opens a local sqlite file or, for libsql:// and http(s):// urls, a
// remote libsql database, and makes sure the schema exists.
func Open(dsn string) (Store, error) {
	if dsn == "" {
		return Store{}, fmt.Errorf("gradestore: a database path was not specified")
	}

	var database *sql.DB
	var err error
	if isRemote(dsn) {
		database, err = sql.Open("libsql", dsn)
		if err != nil {
			return Store{}, fmt.Errorf("gradestore: open libsql: %w", err)
		}
	} else {
		if dsn != ":memory:" {
			err = os.MkdirAll(filepath.Dir(dsn), 0o755)
			if err != nil {
				return Store{}, fmt.Errorf("gradestore: create db dir: %w", err)
			}
		}
		database, err = sql.Open("sqlite", dsn)
		if err != nil {
			return Store{}, fmt.Errorf("gradestore: open sqlite: %w", err)
		}
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		database.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = database.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				database.Close()
				return Store{}, fmt.Errorf("gradestore: enable wal: %w", err)
			}
		}
	}

	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("gradestore: apply schema: %w", err)
	}
	return NewStore(database), nil
}

func isRemote(dsn string) bool {
	for _, prefix := range []string{"libsql://", "http://", "https://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

func (s Store) Close() error {
	return s.db.Close()
}

type Snapshot struct {
	Course string
	Column string
	Grade  string
	Time   time.Time
}

func (s Store) Push(ctx context.Context, snapshot Snapshot) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into grade_snapshot (course, column_name, grade, time) values (?, ?, ?, ?)`,
		snapshot.Course,
		snapshot.Column,
		snapshot.Grade,
		snapshot.Time.Unix(),
	)
	if err != nil {
		return fmt.Errorf("gradestore: push: %w", err)
	}
	return nil
}

// Pull returns the latest snapshots of course, newest first. An empty course
// returns snapshots of every course, limit <= 0 means no limit.
func (s Store) Pull(ctx context.Context, course string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select course, column_name, grade, time from grade_snapshot
		where (? = '' or course = ?)
		order by time desc, id desc
		limit ?`,
		course, course, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("gradestore: pull: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var unix int64
		err := rows.Scan(&snap.Course, &snap.Column, &snap.Grade, &unix)
		if err != nil {
			return nil, fmt.Errorf("gradestore: scan: %w", err)
		}
		snap.Time = time.Unix(unix, 0)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
