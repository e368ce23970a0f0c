// Package testutil opens throwaway SQLite databases and builds fixtures for
// service and handler tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram/internal/config"
	"foodgram/internal/db"
	"foodgram/internal/logger"
	"foodgram/internal/models"
)

var seq atomic.Int64

// NewDB returns a migrated in-memory database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		DBDriver:    "sqlite",
		DatabaseURL: fmt.Sprintf("file:foodgram_test_%d?mode=memory&cache=shared", seq.Add(1)),
	}
	gdb, err := db.Open(cfg, logger.Nop())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "First " + username,
		LastName:  "Last " + username,
		Password:  "x",
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func CreateTag(t *testing.T, gdb *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug}
	require.NoError(t, gdb.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, gdb *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, gdb.Create(ing).Error)
	return ing
}

// Line is a shorthand ingredient line for CreateRecipe.
type Line struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateRecipe inserts a recipe directly, bypassing service validation.
func CreateRecipe(t *testing.T, gdb *gorm.DB, author *models.User, name string, tags []*models.Tag, lines ...Line) *models.Recipe {
	t.Helper()
	r := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        name + " text",
		CookingTime: 10,
	}
	for _, tag := range tags {
		r.Tags = append(r.Tags, *tag)
	}
	for _, l := range lines {
		r.Ingredients = append(r.Ingredients, models.RecipeIngredient{IngredientID: l.Ingredient.ID, Amount: l.Amount})
	}
	require.NoError(t, gdb.Omit("Tags.*").Create(r).Error)
	return r
}
