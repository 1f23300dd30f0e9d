package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"securebank-chat/internal/domain"
)

// DefaultFileName replica la clave de storage del widget web.
const DefaultFileName = "agent-storage.json"

// FileStore guarda el registro como JSON en un archivo local.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath devuelve $XDG_CONFIG_HOME/securebank/agent-storage.json (o
// el equivalente de la plataforma).
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "securebank", DefaultFileName), nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (domain.SessionRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SessionRecord{}, ErrNotFound
		}
		return domain.SessionRecord{}, err
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := validate(rec); err != nil {
		return domain.SessionRecord{}, err
	}
	return rec, nil
}

func (s *FileStore) Save(_ context.Context, rec domain.SessionRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(s.path)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(s.path)
		return err
	}
	return f.Close()
}
