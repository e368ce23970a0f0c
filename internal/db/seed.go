package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/internal/logger"
	"foodgram/internal/models"
)

var defaultTags = []models.Tag{
	{Name: "Завтрак", Slug: "breakfast"},
	{Name: "Обед", Slug: "lunch"},
	{Name: "Ужин", Slug: "dinner"},
}

// SeedTags 标签表为空时写入预设标签
func SeedTags(db *gorm.DB, log *logger.Logger) error {
	var count int64
	if err := db.Model(&models.Tag{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug("Tags already seeded, skipping")
		return nil
	}

	tags := make([]models.Tag, len(defaultTags))
	copy(tags, defaultTags)
	if err := db.Create(&tags).Error; err != nil {
		return fmt.Errorf("seed tags: %w", err)
	}
	log.Info("Initial tags created", "count", len(tags))
	return nil
}

// ImportIngredientsFile 从 CSV 文件导入食材
func ImportIngredientsFile(db *gorm.DB, path string, log *logger.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ingredients csv: %w", err)
	}
	defer f.Close()

	n, err := ImportIngredients(db, f)
	if err != nil {
		return err
	}
	log.Info("Ingredients imported", "path", path, "inserted", n)
	return nil
}

// ImportIngredients 读取 "name,measurement_unit" 行，已存在的组合跳过，返回新增条数
func ImportIngredients(db *gorm.DB, r io.Reader) (int64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var batch []models.Ingredient
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read ingredients csv: %w", err)
		}
		if len(record) < 2 {
			return 0, fmt.Errorf("ingredients csv line %d: expected 2 columns, got %d", line, len(record))
		}
		name := strings.TrimSpace(record[0])
		unit := strings.TrimSpace(record[1])
		if name == "" || unit == "" {
			continue
		}
		batch = append(batch, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&batch, 500)
	if res.Error != nil {
		return 0, fmt.Errorf("insert ingredients: %w", res.Error)
	}
	return res.RowsAffected, nil
}
