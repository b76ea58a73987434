package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/tidwall/buntdb"
)

const (
	buntKeyPrefix   = "drawing:"
	buntSourceIndex = "source_index"
)

// BuntStorage implements Backend using BuntDB. Values are the JSON encoding
// of core.Drawing, indexed by source id and creation time.
type BuntStorage struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(buntSourceIndex, buntKeyPrefix+"*",
		buntdb.IndexJSONCaseSensitive("source_id"), buntdb.IndexJSON("created_at"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{db: db}, nil
}

func buntKey(id string) string {
	return buntKeyPrefix + id
}

// Load returns the drawings of sourceID ordered by creation time
func (b *BuntStorage) Load(ctx context.Context, sourceID string) ([]core.Drawing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the pivot has no created_at, so it sorts before every drawing of the source
	pivot, err := json.Marshal(map[string]string{"source_id": sourceID})
	if err != nil {
		return nil, fmt.Errorf("failed to build pivot: %w", err)
	}

	drawings := make([]core.Drawing, 0)
	err = b.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.AscendGreaterOrEqual(buntSourceIndex, string(pivot), func(key, value string) bool {
			var d core.Drawing
			if err := json.Unmarshal([]byte(value), &d); err != nil {
				decodeErr = fmt.Errorf("failed to unmarshal %s: %w", key, err)
				return false
			}
			if d.SourceID != sourceID {
				return false
			}
			drawings = append(drawings, d)
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to iterate over drawings: %w", err)
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}

	return drawings, nil
}

// Save stores the drawing, replacing any drawing with the same id
func (b *BuntStorage) Save(ctx context.Context, drawing core.Drawing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := json.Marshal(drawing)
	if err != nil {
		return fmt.Errorf("failed to marshal drawing: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(buntKey(drawing.ID), string(content), nil); err != nil {
			return fmt.Errorf("failed to store drawing: %w", err)
		}
		return nil
	})
}

// Delete removes a drawing by id
func (b *BuntStorage) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(buntKey(id))
		if errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to delete drawing: %w", err)
		}
		return nil
	})
}

// Clear removes every drawing of sourceID
func (b *BuntStorage) Clear(ctx context.Context, sourceID string) error {
	drawings, err := b.Load(ctx, sourceID)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		for _, d := range drawings {
			if _, err := tx.Delete(buntKey(d.ID)); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("failed to delete drawing: %w", err)
			}
		}
		return nil
	})
}

// Sources implements Backend.
func (b *BuntStorage) Sources(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(buntSourceIndex, func(key, value string) bool {
			if !strings.HasPrefix(key, buntKeyPrefix) {
				return true
			}
			var d struct {
				SourceID string `json:"source_id"`
			}
			if err := json.Unmarshal([]byte(value), &d); err == nil {
				ids = append(ids, d.SourceID)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over drawings: %w", err)
	}

	return sortedSources(ids), nil
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
