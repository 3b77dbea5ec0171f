package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// LoadJSONFile decodes path into a T. A missing file yields the zero value.
func LoadJSONFile[T any](path string) (T, error) {
	var v T
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(b, &v)
	return v, err
}

// SaveJSONFile writes v as indented JSON through a temp file and rename, so a
// crash never leaves a half written file behind.
func SaveJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	_ = os.Remove(path) // Windows rename doesn't overwrite.
	return os.Rename(tmp, path)
}

// Doc is a JSON document on disk with serialized read-modify-write access.
type Doc[T any] struct {
	path string

	mu     sync.Mutex
	loaded bool
	value  T
}

func NewDoc[T any](path string) *Doc[T] { return &Doc[T]{path: path} }

func (d *Doc[T]) Path() string { return d.path }

// Get returns the current value, reading the file on first use.
func (d *Doc[T]) Get() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.loadLocked(); err != nil {
		var zero T
		return zero, err
	}
	return d.value, nil
}

// Update applies fn to the current value and persists the result. The
// in-memory value only changes when the write succeeds.
func (d *Doc[T]) Update(fn func(T) T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.loadLocked(); err != nil {
		return err
	}
	next := fn(d.value)
	if err := SaveJSONFile(d.path, next); err != nil {
		return err
	}
	d.value = next
	return nil
}

func (d *Doc[T]) loadLocked() error {
	if d.loaded {
		return nil
	}
	v, err := LoadJSONFile[T](d.path)
	if err != nil {
		return err
	}
	d.value = v
	d.loaded = true
	return nil
}
