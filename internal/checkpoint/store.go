package checkpoint

import (
	"os"
	"path/filepath"

	"github.com/jabolina/weatherlink/internal/model"
)

// Store persists and restores a full aggregator snapshot.
type Store interface {
	Load() (model.Snapshot, uint64, error)
	Save(snap model.Snapshot, lamport uint64) error
}

// FileStore is the default Store: a single JSON file next to the process
// CWD (spec §6), written with a temp-then-rename swap so a crash mid-write
// never leaves a torn file — spec §9 calls out the original's truncating
// write as a defect new implementations must not repeat.
type FileStore struct {
	path string
}

// NewFileStore builds a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and parses the checkpoint file. A missing file is not an
// error: it returns a zero-value snapshot and a nil error, matching spec
// §4.7 step 1 ("On file absent -> log and continue with empty state").
// Callers are responsible for logging both that case and parse failures.
func (f *FileStore) Load() (model.Snapshot, uint64, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Snapshot{}, 0, nil
		}
		return model.Snapshot{}, 0, err
	}

	var shape fileShape
	if err := jsonAPI.Unmarshal(data, &shape); err != nil {
		return model.Snapshot{}, 0, err
	}
	return decode(shape)
}

// Save atomically replaces the checkpoint file with a fresh snapshot.
func (f *FileStore) Save(snap model.Snapshot, lamport uint64) error {
	shape, err := encode(snap, lamport)
	if err != nil {
		return err
	}
	data, err := jsonAPI.MarshalIndent(shape, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, f.path)
}
