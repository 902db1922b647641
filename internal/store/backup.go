package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// CreateBackup serializes the whole store into one JSON document. Unlike
// list reads, an unavailable backend is an error here: an empty backup would
// be mistaken for a real one.
func (s *Store) CreateBackup(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manuscripts, err := s.loadManuscripts(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	if manuscripts == nil {
		manuscripts = []record.Manuscript{}
	}
	if docs == nil {
		docs = []record.Document{}
	}
	b := record.Backup{
		Manuscripts:  manuscripts,
		Documents:    docs,
		UserSettings: settings,
		Version:      record.BackupVersion,
		Timestamp:    s.nowMillis(),
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// RestoreOutput reports what a restore replaced.
type RestoreOutput struct {
	Manuscripts      int  `json:"manuscripts"`
	Documents        int  `json:"documents"`
	SettingsRestored bool `json:"settings_restored"`
}

// RestoreBackup replaces the stored collections with the contents of blob.
// The manuscripts and documents fields must be present JSON arrays; settings
// are replaced only when userSettings is present and not null. Nothing is
// written unless the whole blob validates.
func (s *Store) RestoreBackup(ctx context.Context, blob []byte) (*RestoreOutput, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, errors.NewMalformedBackup("invalid JSON", err)
	}

	manuscripts, err := decodeArray[record.Manuscript](raw, "manuscripts")
	if err != nil {
		return nil, err
	}
	docs, err := decodeArray[record.Document](raw, "documents")
	if err != nil {
		return nil, err
	}

	var settings *record.UserSettings
	if v, ok := raw["userSettings"]; ok && !isNull(v) {
		settings = &record.UserSettings{}
		if err := json.Unmarshal(v, settings); err != nil {
			return nil, errors.NewMalformedBackup("userSettings is not an object", err)
		}
	}

	entries := make(map[string][]byte, 3)
	if entries[kv.KeyManuscripts], err = encodeCollection(manuscripts); err != nil {
		return nil, errors.NewInternal(err)
	}
	if entries[kv.KeyDocuments], err = encodeCollection(docs); err != nil {
		return nil, errors.NewInternal(err)
	}
	if settings != nil {
		if entries[kv.KeyUserSettings], err = json.Marshal(settings); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.PutMany(ctx, entries); err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}

	if s.index != nil {
		if err := s.index.Rebuild(docs); err != nil {
			s.logger.Warn("search index rebuild failed", "err", err)
		}
	}

	s.logger.Info("backup restored", "manuscripts", len(manuscripts), "documents", len(docs), "settings", settings != nil)
	return &RestoreOutput{
		Manuscripts:      len(manuscripts),
		Documents:        len(docs),
		SettingsRestored: settings != nil,
	}, nil
}

// decodeArray decodes raw[field], which must be present and a JSON array.
func decodeArray[T any](raw map[string]json.RawMessage, field string) ([]T, error) {
	v, ok := raw[field]
	if !ok {
		return nil, errors.NewMalformedBackup(fmt.Sprintf("missing %s", field), nil)
	}
	if t := bytes.TrimSpace(v); len(t) == 0 || t[0] != '[' {
		return nil, errors.NewMalformedBackup(fmt.Sprintf("%s is not an array", field), nil)
	}
	var items []T
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, errors.NewMalformedBackup(fmt.Sprintf("%s has unreadable records", field), err)
	}
	return items, nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}
