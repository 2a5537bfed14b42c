package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	fileKeyNextID      = "nextId"
	fileKeyLastUpdated = "lastUpdated"
)

// FileCollection keeps every record in memory and rewrites one JSON file on
// each mutation. The file holds {"<name>": [...], "nextId": N, "lastUpdated": T}.
type FileCollection[T any, P RecordPtr[T]] struct {
	mu     sync.RWMutex
	path   string
	name   string
	items  []T
	nextID int
}

// OpenFileCollection loads dir/<name>.json, creating it when absent.
func OpenFileCollection[T any, P RecordPtr[T]](dir, name string) (*FileCollection[T, P], error) {
	c := &FileCollection[T, P]{
		path:   filepath.Join(dir, name+".json"),
		name:   name,
		nextID: 1,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the backing file.
func (c *FileCollection[T, P]) Path() string {
	return c.path
}

func (c *FileCollection[T, P]) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.items = []T{}
			return c.persistLocked(c.items, c.nextID)
		}
		return fmt.Errorf("read %s: %w", c.path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, c.path, err)
	}

	items := []T{}
	if raw, ok := doc[c.name]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, c.path, err)
		}
	}

	nextID := 0
	if raw, ok := doc[fileKeyNextID]; ok {
		if err := json.Unmarshal(raw, &nextID); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, c.path, err)
		}
	}
	for i := range items {
		if id := P(&items[i]).GetID(); id >= nextID {
			nextID = id + 1
		}
	}
	if nextID < 1 {
		nextID = 1
	}

	c.items = items
	c.nextID = nextID
	return nil
}

// persistLocked writes a snapshot through a temp file and rename, so a crash
// mid-write never leaves a truncated file behind.
func (c *FileCollection[T, P]) persistLocked(items []T, nextID int) error {
	doc := map[string]any{
		c.name:             items,
		fileKeyNextID:      nextID,
		fileKeyLastUpdated: clock().Format(time.RFC3339Nano),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	return nil
}

func (c *FileCollection[T, P]) List(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out, nil
}

func (c *FileCollection[T, P]) Get(ctx context.Context, id int) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], nil
	}
	var zero T
	return zero, ErrNotFound
}

func (c *FileCollection[T, P]) Create(ctx context.Context, rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := clock()
	P(&rec).SetID(c.nextID)
	P(&rec).SetCreatedAt(ts)
	P(&rec).SetUpdatedAt(ts)

	items := make([]T, len(c.items), len(c.items)+1)
	copy(items, c.items)
	items = append(items, rec)

	if err := c.persistLocked(items, c.nextID+1); err != nil {
		var zero T
		return zero, err
	}
	c.items = items
	c.nextID++
	return rec, nil
}

func (c *FileCollection[T, P]) Update(ctx context.Context, id int, patch Patch) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	i := c.indexLocked(id)
	if i < 0 {
		return zero, ErrNotFound
	}
	updated, err := applyPatch[T, P](c.items[i], patch, clock())
	if err != nil {
		return zero, err
	}
	return c.swapLocked(i, updated)
}

func (c *FileCollection[T, P]) Replace(ctx context.Context, rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	id := P(&rec).GetID()
	i := c.indexLocked(id)
	if i < 0 {
		return zero, ErrNotFound
	}
	P(&rec).SetCreatedAt(P(&c.items[i]).GetCreatedAt())
	P(&rec).SetUpdatedAt(clock())
	return c.swapLocked(i, rec)
}

func (c *FileCollection[T, P]) Modify(ctx context.Context, id int, fn func(T) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	i := c.indexLocked(id)
	if i < 0 {
		return zero, ErrNotFound
	}
	current := c.items[i]
	next, err := fn(current)
	if err != nil {
		return zero, err
	}
	P(&next).SetID(id)
	P(&next).SetCreatedAt(P(&current).GetCreatedAt())
	P(&next).SetUpdatedAt(clock())
	return c.swapLocked(i, next)
}

func (c *FileCollection[T, P]) Delete(ctx context.Context, id int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	items := make([]T, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)

	if err := c.persistLocked(items, c.nextID); err != nil {
		return false, err
	}
	c.items = items
	return true, nil
}

func (c *FileCollection[T, P]) swapLocked(i int, rec T) (T, error) {
	items := make([]T, len(c.items))
	copy(items, c.items)
	items[i] = rec

	if err := c.persistLocked(items, c.nextID); err != nil {
		var zero T
		return zero, err
	}
	c.items = items
	return rec, nil
}

func (c *FileCollection[T, P]) indexLocked(id int) int {
	for i := range c.items {
		if P(&c.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}
