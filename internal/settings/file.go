package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/usagiclock/internal/schedule"
)

// File stores settings in a JSON document keyed by schedule.StorageKey.
// Other keys in the document are preserved on save.
type File struct {
	Path string
	log  zerolog.Logger
	mu   sync.Mutex
}

func NewFile(path string, log zerolog.Logger) *File {
	return &File{Path: path, log: log.With().Str("store", "file").Logger()}
}

func (f *File) read() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schedule.ErrMalformedSettings, f.Path, err)
	}
	return doc, nil
}

func (f *File) Load(context.Context) schedule.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return orDefault(f.log, schedule.Settings{}, err)
	}
	raw, ok := doc[schedule.StorageKey]
	if !ok {
		return orDefault(f.log, schedule.Settings{}, ErrNotFound)
	}
	s, err := decode(raw)
	return orDefault(f.log, s, err)
}

// Save writes through a temp file and rename so a crash never leaves a
// partial document.
func (f *File) Save(_ context.Context, s schedule.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		// Replace an unreadable document rather than refuse to save.
		f.log.Warn().Err(err).Msg("overwriting unreadable settings file")
		doc = map[string]json.RawMessage{}
	}
	rec, err := json.Marshal(s)
	if err != nil {
		return err
	}
	doc[schedule.StorageKey] = rec
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
