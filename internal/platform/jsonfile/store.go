package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/platform/logger"
	"github.com/phrazzld/mindpalace/internal/store"
)

// DefaultFileName is the save file used when no path is configured.
const DefaultFileName = "palace-save.json"

// Store implements store.PalaceStore on a JSON file.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// Ensure Store implements store.PalaceStore interface
var _ store.PalaceStore = (*Store)(nil)

// NewStore creates a Store for the file at path.
// If logger is nil, a default logger will be used.
func NewStore(path string, logger *slog.Logger) *Store {
	if path == "" {
		path = DefaultFileName
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "jsonfile_store")),
	}
}

// Path returns the location of the save file.
func (s *Store) Path() string {
	return s.path
}

// LoadOrCreate implements store.PalaceStore.LoadOrCreate.
func (s *Store) LoadOrCreate(ctx context.Context) *domain.Palace {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("no save file found, starting a new palace", slog.String("path", s.path))
		} else {
			log.Warn("failed to read save file, starting a new palace",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
		return domain.NewPalace()
	}

	p, err := Decode(data)
	if err != nil {
		log.Warn("failed to parse save file, starting a new palace",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return domain.NewPalace()
	}

	log.Info("loaded palace",
		slog.String("palace_id", p.ID),
		slog.Int("cards", len(p.Cards)),
		slog.String("path", s.path))
	return p
}

// Save implements store.PalaceStore.Save.
//
// The document is written to a temporary file in the target directory, synced
// and renamed over the save file, so a crash mid-write leaves the previous
// save intact.
func (s *Store) Save(ctx context.Context, p *domain.Palace) error {
	if p == nil {
		return store.NewStoreError("palace", "save", "palace cannot be nil", store.ErrInvalidEntity)
	}

	data, err := Encode(p)
	if err != nil {
		return store.NewStoreError("palace", "save", "failed to encode palace", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := writeFileAtomic(s.path, data); err != nil {
		log.Error("failed to save palace",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return store.NewStoreError("palace", "save", "failed to write save file",
			fmt.Errorf("%w: %w", store.ErrSaveFailed, err))
	}

	log.Debug("saved palace",
		slog.String("palace_id", p.ID),
		slog.Int("cards", len(p.Cards)),
		slog.String("path", s.path))
	return nil
}

// Encode serializes a palace into the save file format.
func Encode(p *domain.Palace) ([]byte, error) {
	return json.MarshalIndent(toSaveFile(p), "", "  ")
}

// Decode parses a save file. Unknown fields are ignored.
func Decode(data []byte) (*domain.Palace, error) {
	var f saveFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFormat, err)
	}
	return fromSaveFile(f), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
