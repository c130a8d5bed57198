// Package state persists the last grade observed by a completed check.
//
// The file is a single JSON object:
//
//	{ "nota": "8", "fecha": "2026-10-19T14:03:05-03:00" }
//
// where both fields may be null before the first check.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Lock when another process holds the state lock.
var ErrLocked = errors.New("state: another check is in progress")

// State is the persisted comparison baseline, a nil Grade means "never recorded".
type State struct {
	Grade      *string    `json:"nota"`
	RecordedAt *time.Time `json:"fecha"`
}

// New builds a recorded state.
func New(grade string, at time.Time) State {
	return State{Grade: &grade, RecordedAt: &at}
}

func (s State) Recorded() bool {
	return s.Grade != nil
}

// GradeOr returns the recorded grade or fallback if nothing was recorded.
func (s State) GradeOr(fallback string) string {
	if s.Grade == nil {
		return fallback
	}
	return *s.Grade
}

// Store reads and writes State.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// FileStore keeps State in a JSON file, writes are atomic (temp file + rename).
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (f *FileStore) Path() string {
	return f.path
}

// Load returns the zero State when the file does not exist yet.
func (f *FileStore) Load(ctx context.Context) (State, error) {
	contents, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}

	var s State
	err = json.Unmarshal(contents, &s)
	if err != nil {
		return State{}, fmt.Errorf("parse state %s: %w", f.path, err)
	}
	return s, nil
}

func (f *FileStore) Save(ctx context.Context, s State) error {
	contents, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(append(contents, '\n'))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	err = os.Rename(tmp.Name(), f.path)
	if err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Lock takes the cross-process lock guarding a whole check. It does not wait:
// if another process holds the lock it returns ErrLocked.
func (f *FileStore) Lock(ctx context.Context) (unlock func() error, err error) {
	err = os.MkdirAll(filepath.Dir(f.path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	locked, err := f.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return f.lock.Unlock, nil
}
