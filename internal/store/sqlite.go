package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type document struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         int       `gorm:"primaryKey;autoIncrement:false"`
	Body       string    `gorm:"type:text;not null"`
	Created    time.Time `gorm:"column:created_at;not null"`
	Updated    time.Time `gorm:"column:updated_at;not null"`
}

func (document) TableName() string { return "documents" }

type sequence struct {
	Collection string `gorm:"primaryKey;size:64"`
	NextID     int    `gorm:"not null"`
}

func (sequence) TableName() string { return "collection_sequences" }

// MigrateSQLite creates the document tables used by SQLiteCollection.
func MigrateSQLite(db *gorm.DB) error {
	return db.AutoMigrate(&document{}, &sequence{})
}

// SQLiteCollection mirrors PostgresCollection on a local sqlite file through gorm.
type SQLiteCollection[T any, P RecordPtr[T]] struct {
	db   *gorm.DB
	name string
}

func NewSQLiteCollection[T any, P RecordPtr[T]](db *gorm.DB, name string) *SQLiteCollection[T, P] {
	return &SQLiteCollection[T, P]{db: db, name: name}
}

func (c *SQLiteCollection[T, P]) decode(doc document) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(doc.Body), &rec); err != nil {
		return rec, fmt.Errorf("%w: %s/%d: %v", ErrCorrupt, c.name, doc.ID, err)
	}
	P(&rec).SetID(doc.ID)
	P(&rec).SetCreatedAt(doc.Created.UTC())
	P(&rec).SetUpdatedAt(doc.Updated.UTC())
	return rec, nil
}

func (c *SQLiteCollection[T, P]) List(ctx context.Context) ([]T, error) {
	var docs []document
	if err := c.db.WithContext(ctx).
		Where("collection = ?", c.name).
		Order("id").
		Find(&docs).Error; err != nil {
		return nil, err
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *SQLiteCollection[T, P]) Get(ctx context.Context, id int) (T, error) {
	var zero T
	doc, err := c.find(c.db.WithContext(ctx), id)
	if err != nil {
		return zero, err
	}
	return c.decode(doc)
}

func (c *SQLiteCollection[T, P]) find(tx *gorm.DB, id int) (document, error) {
	var doc document
	err := tx.Where("collection = ? AND id = ?", c.name, id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return doc, ErrNotFound
	}
	return doc, err
}

func (c *SQLiteCollection[T, P]) Create(ctx context.Context, rec T) (T, error) {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := sequence{Collection: c.name, NextID: 1}
		if err := tx.Where("collection = ?", c.name).First(&seq).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		id := seq.NextID
		seq.NextID++
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&seq).Error; err != nil {
			return err
		}

		ts := clock()
		P(&rec).SetID(id)
		P(&rec).SetCreatedAt(ts)
		P(&rec).SetUpdatedAt(ts)

		body, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Create(&document{
			Collection: c.name,
			ID:         id,
			Body:       string(body),
			Created:    ts,
			Updated:    ts,
		}).Error
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

func (c *SQLiteCollection[T, P]) Update(ctx context.Context, id int, patch Patch) (T, error) {
	return c.mutate(ctx, id, func(current T) (T, error) {
		return applyPatch[T, P](current, patch, clock())
	})
}

func (c *SQLiteCollection[T, P]) Replace(ctx context.Context, rec T) (T, error) {
	return c.mutate(ctx, P(&rec).GetID(), func(current T) (T, error) {
		P(&rec).SetCreatedAt(P(&current).GetCreatedAt())
		return rec, nil
	})
}

func (c *SQLiteCollection[T, P]) Modify(ctx context.Context, id int, fn func(T) (T, error)) (T, error) {
	return c.mutate(ctx, id, func(current T) (T, error) {
		next, err := fn(current)
		if err != nil {
			return next, err
		}
		P(&next).SetCreatedAt(P(&current).GetCreatedAt())
		return next, nil
	})
}

func (c *SQLiteCollection[T, P]) mutate(ctx context.Context, id int, fn func(T) (T, error)) (T, error) {
	var next T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := c.find(tx, id)
		if err != nil {
			return err
		}
		current, err := c.decode(doc)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return err
		}

		ts := clock()
		P(&next).SetID(id)
		P(&next).SetUpdatedAt(ts)

		body, err := json.Marshal(next)
		if err != nil {
			return err
		}
		doc.Body = string(body)
		doc.Updated = ts
		return tx.Save(&doc).Error
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return next, nil
}

func (c *SQLiteCollection[T, P]) Delete(ctx context.Context, id int) (bool, error) {
	res := c.db.WithContext(ctx).
		Where("collection = ? AND id = ?", c.name, id).
		Delete(&document{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
