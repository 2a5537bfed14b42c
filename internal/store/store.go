package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is implemented by every persisted entity through its embedded
// types.Meta.
type Record interface {
	GetID() int
	SetID(id int)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	SetUpdatedAt(t time.Time)
}

// RecordPtr constrains P to be *T implementing Record, so collections can
// hold values while still mutating ids and timestamps.
type RecordPtr[T any] interface {
	*T
	Record
}

// Patch is a set of top-level JSON fields shallow-merged over a record.
type Patch map[string]any

// Collection is the persistence contract shared by every entity store.
type Collection[T any] interface {
	// List returns every record in id order.
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int) (T, error)
	// Create assigns the next id and stamps both timestamps.
	Create(ctx context.Context, rec T) (T, error)
	// Update merges patch over the stored record and re-stamps UpdatedAt.
	Update(ctx context.Context, id int, patch Patch) (T, error)
	// Replace overwrites the stored record, keeping its id and CreatedAt.
	Replace(ctx context.Context, rec T) (T, error)
	// Modify runs fn on the current record and stores its result atomically.
	// An error from fn aborts the write and is returned as is.
	Modify(ctx context.Context, id int, fn func(T) (T, error)) (T, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, id int) (bool, error)
}

// Searchable exposes the text fields a record is matched against.
type Searchable interface {
	SearchText() []string
}

// Search keeps the items whose search fields contain query, ignoring case.
// An empty query matches everything.
func Search[T Searchable](items []T, query string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	matched := make([]T, 0, len(items))
	for _, item := range items {
		for _, field := range item.SearchText() {
			if strings.Contains(strings.ToLower(field), q) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

// immutableFields cannot be changed through a Patch.
var immutableFields = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
}

func applyPatch[T any, P RecordPtr[T]](current T, patch Patch, now time.Time) (T, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return current, err
	}

	for key, value := range patch {
		if immutableFields[key] {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return current, fmt.Errorf("encode field %q: %w", key, err)
		}
		fields[key] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return current, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return current, fmt.Errorf("apply patch: %w", err)
	}
	P(&out).SetUpdatedAt(now)
	return out, nil
}

var clock = func() time.Time {
	return time.Now().UTC()
}
