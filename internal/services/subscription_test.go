package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram/internal/apperr"
	"foodgram/internal/models"
	"foodgram/internal/testutil"
)

func TestSubscribeSelfAlwaysInvalid(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	u := testutil.CreateUser(t, gdb, "anna")
	other := testutil.CreateUser(t, gdb, "boris")
	svc := NewSubscriptionService(gdb)

	_, err := svc.Subscribe(ctx, u.ID, u.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	// 无论已有什么关注关系，自己关注自己都不被允许
	_, err = svc.Subscribe(ctx, u.ID, other.ID)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, u.ID, u.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	err = svc.Unsubscribe(ctx, u.ID, u.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	// 自检在作者存在性检查之前
	_, err = svc.Subscribe(ctx, 9999, 9999)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
	err = svc.Unsubscribe(ctx, 9999, 9999)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestSubscribeLifecycle(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	u := testutil.CreateUser(t, gdb, "anna")
	author := testutil.CreateUser(t, gdb, "boris")
	svc := NewSubscriptionService(gdb)

	got, err := svc.Subscribe(ctx, u.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "boris", got.Username)

	_, err = svc.Subscribe(ctx, u.ID, author.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Subscribe(ctx, u.ID, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	set, err := svc.SubscribedTo(ctx, u.ID, []uint{author.ID, u.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{author.ID: true}, set)

	require.NoError(t, svc.Unsubscribe(ctx, u.ID, author.ID))
	assert.ErrorIs(t, svc.Unsubscribe(ctx, u.ID, author.ID), apperr.ErrNotFound)
}

func TestListAuthors(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	u := testutil.CreateUser(t, gdb, "anna")
	a1 := testutil.CreateUser(t, gdb, "boris")
	a2 := testutil.CreateUser(t, gdb, "vera")
	tag := testutil.CreateTag(t, gdb, "Dinner", "dinner")
	salt := testutil.CreateIngredient(t, gdb, "Salt", "g")
	for _, name := range []string{"one", "two", "three"} {
		testutil.CreateRecipe(t, gdb, a1, name, []*models.Tag{tag}, testutil.Line{Ingredient: salt, Amount: 1})
	}

	svc := NewSubscriptionService(gdb)
	_, err := svc.Subscribe(ctx, u.ID, a1.ID)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, u.ID, a2.ID)
	require.NoError(t, err)

	feeds, total, err := svc.ListAuthors(ctx, u.ID, Page{Limit: 10}, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, feeds, 2)

	// 最近关注的排在前面
	assert.Equal(t, a2.ID, feeds[0].Author.ID)
	assert.EqualValues(t, 0, feeds[0].RecipesCount)
	assert.Empty(t, feeds[0].Recipes)

	assert.Equal(t, a1.ID, feeds[1].Author.ID)
	assert.EqualValues(t, 3, feeds[1].RecipesCount)
	assert.Len(t, feeds[1].Recipes, 2)

	feeds, _, err = svc.ListAuthors(ctx, u.ID, Page{Limit: 1, Offset: 1}, 0)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Len(t, feeds[0].Recipes, 3)
}
