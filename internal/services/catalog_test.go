package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram/internal/apperr"
	"foodgram/internal/testutil"
	"foodgram/internal/utils"
)

func TestSearchIngredientsPrefix(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	testutil.CreateIngredient(t, gdb, "Salt", "g")
	testutil.CreateIngredient(t, gdb, "salmon", "g")
	testutil.CreateIngredient(t, gdb, "Sugar", "g")
	testutil.CreateIngredient(t, gdb, "sea salt", "g")
	testutil.CreateIngredient(t, gdb, "100%_juice", "ml")

	cache, err := utils.NewCache(16, time.Minute)
	require.NoError(t, err)
	svc := NewCatalogService(gdb, cache)

	names := func(prefix string) []string {
		items, err := svc.SearchIngredients(ctx, prefix)
		require.NoError(t, err)
		out := []string{}
		for _, it := range items {
			out = append(out, it.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Salt", "salmon"}, names("SAL"))
	assert.Equal(t, []string{"100%_juice"}, names("100%_"))
	assert.Empty(t, names("100_"))
	assert.Len(t, names(""), 5)

	// 结果被缓存，新增数据需 Invalidate 后才可见
	testutil.CreateIngredient(t, gdb, "salsa", "g")
	assert.Len(t, names("sal"), 2)
	svc.Invalidate()
	assert.Len(t, names("sal"), 3)
}

func TestTagsAndLookups(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	lunch := testutil.CreateTag(t, gdb, "Lunch", "lunch")
	testutil.CreateTag(t, gdb, "Dinner", "dinner")
	salt := testutil.CreateIngredient(t, gdb, "Salt", "g")

	cache, err := utils.NewCache(16, time.Minute)
	require.NoError(t, err)
	svc := NewCatalogService(gdb, cache)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "lunch", tags[0].Slug)

	tag, err := svc.GetTag(ctx, lunch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", tag.Name)
	_, err = svc.GetTag(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ing, err := svc.GetIngredient(ctx, salt.ID)
	require.NoError(t, err)
	assert.Equal(t, "g", ing.MeasurementUnit)
	_, err = svc.GetIngredient(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
