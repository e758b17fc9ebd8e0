// Package settings persists alarm settings. Every backend stores one JSON
// record under schedule.StorageKey, and Load never fails: a missing or
// malformed record yields schedule.DefaultSettings.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/usagiclock/internal/schedule"
)

var ErrNotFound = errors.New("settings not found")

type Store interface {
	Load(ctx context.Context) schedule.Settings
	Save(ctx context.Context, s schedule.Settings) error
}

// decode parses and validates a stored record over the defaults, so fields
// the record leaves out keep their default values. A null record counts as
// missing.
func decode(data []byte) (schedule.Settings, error) {
	if t := bytes.TrimSpace(data); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return schedule.Settings{}, ErrNotFound
	}
	s := schedule.DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return schedule.Settings{}, fmt.Errorf("%w: %v", schedule.ErrMalformedSettings, err)
	}
	if err := s.Validate(); err != nil {
		return schedule.Settings{}, err
	}
	return s, nil
}

// orDefault logs why a read failed and falls back to defaults.
func orDefault(log zerolog.Logger, s schedule.Settings, err error) schedule.Settings {
	switch {
	case err == nil:
		return s
	case errors.Is(err, ErrNotFound):
		log.Debug().Msg("no stored settings, using defaults")
	case errors.Is(err, schedule.ErrMalformedSettings):
		log.Warn().Err(err).Msg("stored settings malformed, using defaults")
	default:
		log.Error().Err(err).Msg("settings load failed, using defaults")
	}
	return schedule.DefaultSettings()
}

// Memory keeps settings in process. The zero value is ready to use.
type Memory struct {
	mu  sync.Mutex
	s   schedule.Settings
	set bool
}

func (m *Memory) Load(context.Context) schedule.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return schedule.DefaultSettings()
	}
	return m.s
}

func (m *Memory) Save(_ context.Context, s schedule.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.s, m.set = s, true
	m.mu.Unlock()
	return nil
}
