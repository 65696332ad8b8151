package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoPayload is returned when no prepared quiz is stored.
var ErrNoPayload = errors.New("no prepared quiz")

// PayloadStore is the single slot holding a prepared quiz.
type PayloadStore interface {
	Save(p *Payload) error
	Load() (*Payload, error) // returns ErrNoPayload if the slot is empty
	// Take loads the payload and empties the slot.
	Take() (*Payload, error)
	Delete() error
}

// diskStore keeps the slot as a JSON file in the data directory.
type diskStore struct {
	path string
}

// NewPayloadStore returns the slot at $XDG_DATA_HOME/intervbot/quiz.json
// (or ~/.local/share/intervbot/quiz.json).
func NewPayloadStore() (PayloadStore, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	return NewPayloadStoreAt(filepath.Join(dir, "quiz.json"))
}

// NewPayloadStoreAt returns a slot backed by path.
func NewPayloadStoreAt(path string) (PayloadStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{path: path}, nil
}

// DataDir returns the intervbot XDG data directory. It does not create it.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "intervbot"), nil
}

// Save writes p atomically via a temp file and rename.
func (d *diskStore) Save(p *Payload) (err error) {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to store prepared quiz: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "quiz-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to store prepared quiz: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to store prepared quiz: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to store prepared quiz: %w", err)
	}
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to store prepared quiz: %w", err)
	}
	return nil
}

func (d *diskStore) Load() (*Payload, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoPayload
		}
		return nil, fmt.Errorf("failed to read prepared quiz: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prepared quiz: %w", err)
	}
	return &p, nil
}

// Take removes the file before returning its payload, so a payload is
// handed out at most once even if the caller crashes mid-quiz. A corrupt
// file is removed as well.
func (d *diskStore) Take() (*Payload, error) {
	p, loadErr := d.Load()
	if errors.Is(loadErr, ErrNoPayload) {
		return nil, loadErr
	}
	if err := d.Delete(); err != nil {
		return nil, err
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return p, nil
}

func (d *diskStore) Delete() error {
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete prepared quiz: %w", err)
	}
	return nil
}
