package db_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram/internal/db"
	"foodgram/internal/logger"
	"foodgram/internal/models"
	"foodgram/internal/testutil"
)

func TestImportIngredientsSkipsExisting(t *testing.T) {
	gdb := testutil.NewDB(t)
	testutil.CreateIngredient(t, gdb, "соль", "г")

	csvData := "соль,г\nсахар,г\nсахар,кг\n\"мука, пшеничная\",г\n , \n"
	n, err := db.ImportIngredients(gdb, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	var count int64
	require.NoError(t, gdb.Model(&models.Ingredient{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)

	// 重复导入不新增
	n, err = db.ImportIngredients(gdb, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestImportIngredientsRejectsShortRows(t *testing.T) {
	gdb := testutil.NewDB(t)
	_, err := db.ImportIngredients(gdb, strings.NewReader("соль\n"))
	assert.Error(t, err)
}

func TestSeedTagsOnlyWhenEmpty(t *testing.T) {
	gdb := testutil.NewDB(t)
	require.NoError(t, db.SeedTags(gdb, logger.Nop()))

	var tags []models.Tag
	require.NoError(t, gdb.Order("id").Find(&tags).Error)
	require.Len(t, tags, 3)
	assert.Equal(t, "breakfast", tags[0].Slug)

	require.NoError(t, db.SeedTags(gdb, logger.Nop()))
	var count int64
	gdb.Model(&models.Tag{}).Count(&count)
	assert.EqualValues(t, 3, count)
}
