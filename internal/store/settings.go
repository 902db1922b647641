package store

import (
	"context"
	"encoding/json"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// loadSettings returns the stored settings, or nil when none were saved.
func (s *Store) loadSettings(ctx context.Context) (*record.UserSettings, error) {
	data, err := s.backend.Get(ctx, kv.KeyUserSettings)
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var us record.UserSettings
	if err := json.Unmarshal(data, &us); err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	return &us, nil
}

// Settings returns the user settings. Missing or unreadable settings yield
// the zero value.
func (s *Store) Settings(ctx context.Context) record.UserSettings {
	us, err := s.loadSettings(ctx)
	if err != nil {
		s.logger.Warn("read settings: degraded to defaults", "err", err)
		return record.UserSettings{}
	}
	if us == nil {
		return record.UserSettings{}
	}
	return *us
}

// SaveSettings overwrites the user settings.
func (s *Store) SaveSettings(ctx context.Context, us record.UserSettings) error {
	data, err := json.Marshal(us)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := s.backend.Put(ctx, kv.KeyUserSettings, data); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}
