package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"trade-clicker/pkg/db"
)

// Store persists the single global position value.
type Store interface {
	// Load returns the persisted position, None when nothing was ever saved.
	Load(ctx context.Context) (Position, error)
	// Save overwrites the persisted position.
	Save(ctx context.Context, p Position) error
}

// FileStore keeps the position as one line of plain text.
type FileStore struct {
	path string
	log  zerolog.Logger
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With().Str("component", "file_store").Logger(),
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load never fails on storage problems: a missing or unreadable file, or
// content outside the enumeration, all mean None.
func (s *FileStore) Load(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return None, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("position file unreadable, assuming none")
		}
		return None, nil
	}
	p, err := ParsePosition(string(data))
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("position file corrupt, assuming none")
		return None, nil
	}
	return p, nil
}

// Save writes to a temp file in the same directory and renames it over the target.
func (s *FileStore) Save(ctx context.Context, p Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Valid() {
		return fmt.Errorf("save position: unknown position %q", p)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(string(p)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// DBStore keeps the position in the sqlite position_state table.
type DBStore struct {
	db  *db.Database
	log zerolog.Logger
}

func NewDBStore(database *db.Database, log zerolog.Logger) *DBStore {
	return &DBStore{
		db:  database,
		log: log.With().Str("component", "db_store").Logger(),
	}
}

// Load maps a missing row to None. Query failures are returned: unlike a
// missing file they mean the database itself is broken.
func (s *DBStore) Load(ctx context.Context) (Position, error) {
	raw, err := s.db.GetPositionState(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return None, nil
	}
	if err != nil {
		return None, fmt.Errorf("load position: %w", err)
	}
	p, err := ParsePosition(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored position corrupt, assuming none")
		return None, nil
	}
	return p, nil
}

func (s *DBStore) Save(ctx context.Context, p Position) error {
	if !p.Valid() {
		return fmt.Errorf("save position: unknown position %q", p)
	}
	if err := s.db.SetPositionState(ctx, string(p)); err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}
