// Package store persists note templates in SQLite.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Nephrolytics-ai/medscribe/internal/types"
	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

// ErrTemplateNotFound is returned when a lookup or delete names a template
// that does not exist.
var ErrTemplateNotFound = errors.New("template not found")

type templateRecord struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"uniqueIndex;not null"`
	Fields    datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (templateRecord) TableName() string { return "templates" }

type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path, migrates the
// schema, and seeds the built-in templates on first run.
func Open(ctx context.Context, path string) (*Store, error) {
	log := logging.NewLogger(ctx)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if err := db.AutoMigrate(&templateRecord{}); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	store := &Store{db: db}
	if err := store.seedDefaults(ctx); err != nil {
		return nil, err
	}
	log.Infof("store: template database ready at %s", path)
	return store, nil
}

// Save inserts the template, or replaces its field set if the name exists.
func (s *Store) Save(ctx context.Context, template types.Template) error {
	if template.Name == "" {
		return utils.WrapIfNotNil(errors.New("template name is empty"))
	}
	if len(template.Fields) == 0 {
		return utils.WrapIfNotNil(fmt.Errorf("template %q has no fields", template.Name))
	}

	fields, err := json.Marshal(template.Fields)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	record := templateRecord{Name: template.Name, Fields: fields}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
	}).Create(&record)
	return utils.WrapIfNotNil(result.Error)
}

// Load returns the named template with its fields in ordinal order.
func (s *Store) Load(ctx context.Context, name string) (types.Template, error) {
	var record templateRecord
	result := s.db.WithContext(ctx).Where("name = ?", name).First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return types.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if result.Error != nil {
		return types.Template{}, utils.WrapIfNotNil(result.Error)
	}

	var fields []types.FieldDefinition
	if err := json.Unmarshal(record.Fields, &fields); err != nil {
		return types.Template{}, utils.WrapIfNotNil(err)
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Ordinal < fields[j].Ordinal })

	return types.Template{Name: record.Name, Fields: fields}, nil
}

// List returns template summaries, newest first.
func (s *Store) List(ctx context.Context) ([]types.TemplateInfo, error) {
	var records []templateRecord
	result := s.db.WithContext(ctx).Order("created_at DESC").Find(&records)
	if result.Error != nil {
		return nil, utils.WrapIfNotNil(result.Error)
	}

	infos := make([]types.TemplateInfo, 0, len(records))
	for _, record := range records {
		var fields []types.FieldDefinition
		if err := json.Unmarshal(record.Fields, &fields); err != nil {
			return nil, utils.WrapIfNotNil(err)
		}
		infos = append(infos, types.TemplateInfo{
			Name:       record.Name,
			FieldCount: len(fields),
			CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return infos, nil
}

// Delete removes the named template.
func (s *Store) Delete(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&templateRecord{})
	if result.Error != nil {
		return utils.WrapIfNotNil(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return nil
}

func (s *Store) seedDefaults(ctx context.Context) error {
	log := logging.NewLogger(ctx)
	for _, template := range defaultTemplates() {
		var count int64
		result := s.db.WithContext(ctx).Model(&templateRecord{}).
			Where("name = ?", template.Name).Count(&count)
		if result.Error != nil {
			return utils.WrapIfNotNil(result.Error)
		}
		if count > 0 {
			continue
		}
		if err := s.Save(ctx, template); err != nil {
			return err
		}
		log.Infof("store: seeded default template %q", template.Name)
	}
	return nil
}
