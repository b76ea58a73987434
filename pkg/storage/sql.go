package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// drawingModel is the table layout used by SQLStorage
type drawingModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	SourceID   string    `gorm:"size:128;not null;index:idx_drawings_source,priority:1"`
	Type       string    `gorm:"size:32;not null"`
	Points     string    `gorm:"type:text;not null"`
	Properties string    `gorm:"type:text;not null"`
	Selected   bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"index:idx_drawings_source,priority:2"`
	UpdatedAt  time.Time
}

// TableName implements gorm's tabler.
func (drawingModel) TableName() string { return "drawings" }

func toModel(d core.Drawing) (drawingModel, error) {
	points, err := json.Marshal(d.Points)
	if err != nil {
		return drawingModel{}, fmt.Errorf("encode points: %w", err)
	}
	props, err := json.Marshal(d.Properties)
	if err != nil {
		return drawingModel{}, fmt.Errorf("encode properties: %w", err)
	}

	return drawingModel{
		ID:         d.ID,
		SourceID:   d.SourceID,
		Type:       string(d.Type),
		Points:     string(points),
		Properties: string(props),
		Selected:   d.Selected,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func (m drawingModel) toDrawing() (core.Drawing, error) {
	d := core.Drawing{
		ID:        m.ID,
		SourceID:  m.SourceID,
		Type:      core.DrawingType(m.Type),
		Selected:  m.Selected,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Points), &d.Points); err != nil {
		return core.Drawing{}, fmt.Errorf("decode points of %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(m.Properties), &d.Properties); err != nil {
		return core.Drawing{}, fmt.Errorf("decode properties of %s: %w", m.ID, err)
	}
	return d, nil
}

// SQLStorage implements Backend on a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// FromPostgres connects to PostgreSQL with the given DSN
func FromPostgres(dsn string, opts ...gorm.Option) (*SQLStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres storage requires a dsn")
	}
	return FromSQL(postgres.Open(dsn), opts...)
}

// FromSQL creates a new SQL storage instance
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&drawingModel{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// Load returns the drawings of sourceID ordered by creation time
func (s *SQLStorage) Load(ctx context.Context, sourceID string) ([]core.Drawing, error) {
	var models []drawingModel
	result := s.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("created_at, id").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch drawings: %w", result.Error)
	}

	drawings := make([]core.Drawing, 0, len(models))
	for _, m := range models {
		d, err := m.toDrawing()
		if err != nil {
			return nil, err
		}
		drawings = append(drawings, d)
	}
	return drawings, nil
}

// Save inserts the drawing or replaces the one with the same id
func (s *SQLStorage) Save(ctx context.Context, drawing core.Drawing) error {
	model, err := toModel(drawing)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to save drawing: %w", result.Error)
	}
	return nil
}

// Delete removes a drawing by id
func (s *SQLStorage) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&drawingModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete drawing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

// Clear removes every drawing of sourceID
func (s *SQLStorage) Clear(ctx context.Context, sourceID string) error {
	result := s.db.WithContext(ctx).Where("source_id = ?", sourceID).Delete(&drawingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear drawings: %w", result.Error)
	}
	return nil
}

// Sources implements Backend.
func (s *SQLStorage) Sources(ctx context.Context) ([]string, error) {
	var ids []string
	result := s.db.WithContext(ctx).Model(&drawingModel{}).Distinct().Pluck("source_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch sources: %w", result.Error)
	}
	return sortedSources(lo.Compact(ids)), nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
