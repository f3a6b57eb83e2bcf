package services

import (
	"context"
	"testing"

	"biblios/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := env.seedCategory(t, "fiction")

	item, err := env.catalog.CreateItem(ctx, &CreateItemInput{
		Title:      "Dune",
		Author:     "Frank Herbert",
		ISBN:       "978-0441013593",
		CategoryID: category.ID,
		TotalCopies: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, item.TotalCopies)
	assert.Equal(t, 4, item.AvailableCopies, "new items start with every copy on the shelf")
	require.NotNil(t, item.Category)
	assert.Equal(t, "fiction", item.Category.Name)
}

func TestCreateItemDefaultsToOneCopy(t *testing.T) {
	env := newTestEnv(t)
	category := env.seedCategory(t, "fiction")

	item, err := env.catalog.CreateItem(context.Background(), &CreateItemInput{
		Title:      "Dune",
		Author:     "Frank Herbert",
		ISBN:       "978-0441013593",
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, item.TotalCopies)
	assert.Equal(t, 1, item.AvailableCopies)
}

func TestCreateItemDuplicateISBN(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := env.seedCategory(t, "fiction")

	_, err := env.catalog.CreateItem(ctx, &CreateItemInput{
		Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593", CategoryID: category.ID,
	})
	require.NoError(t, err)

	_, err = env.catalog.CreateItem(ctx, &CreateItemInput{
		Title: "Dune (reissue)", Author: "Frank Herbert", ISBN: "978-0441013593", CategoryID: category.ID,
	})
	assert.ErrorIs(t, err, ErrISBNAlreadyUsed)
}

func TestCreateItemUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.catalog.CreateItem(context.Background(), &CreateItemInput{
		Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593", CategoryID: 999,
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestUpdateItemMetadataLeavesCountersAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 3)

	// One copy out on loan, so available != total.
	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	updated, err := env.catalog.UpdateItem(ctx, item.ID, &UpdateItemInput{
		Title:     "Dune (Deluxe)",
		Publisher: "Ace",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dune (Deluxe)", updated.Title)
	assert.Equal(t, 3, updated.TotalCopies)
	assert.Equal(t, 2, updated.AvailableCopies, "metadata edits must never touch the counters")
}

func TestResizeIncreaseAddsToShelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 2)

	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	newTotal := 5
	updated, err := env.catalog.UpdateItem(ctx, item.ID, &UpdateItemInput{TotalCopies: &newTotal})
	require.NoError(t, err)

	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 4, updated.AvailableCopies, "the three new copies go straight to the shelf")
}

func TestResizeDecreaseRescalesProportionally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, "dune", 4)

	// 2 of 4 available.
	require.NoError(t, env.db.Model(&models.Item{}).
		Where("id = ?", item.ID).
		UpdateColumn("available_copies", 2).Error)

	newTotal := 2
	updated, err := env.catalog.UpdateItem(ctx, item.ID, &UpdateItemInput{TotalCopies: &newTotal})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.TotalCopies)
	assert.Equal(t, 1, updated.AvailableCopies, "2/4 availability rescaled to 2 copies is 1")
}

func TestResizeToZero(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem(t, "dune", 3)

	newTotal := 0
	updated, err := env.catalog.UpdateItem(context.Background(), item.ID, &UpdateItemInput{TotalCopies: &newTotal})
	require.NoError(t, err)

	assert.Equal(t, 0, updated.TotalCopies)
	assert.Equal(t, 0, updated.AvailableCopies)
}

func TestDeleteItemBlockedByActiveLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, env.catalog.DeleteItem(ctx, item.ID), ErrItemHasLoans)
}

func TestDeleteItemAfterReturn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	item := env.seedItem(t, "dune", 1)

	loan, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: item.ID})
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, loan.ID)
	require.NoError(t, err)

	require.NoError(t, env.catalog.DeleteItem(ctx, item.ID))
	_, err = env.catalog.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestListItemsFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patron := env.seedPatron(t, "alice")
	dune := env.seedItem(t, "dune", 1)
	env.seedItem(t, "hyperion", 1)

	_, err := env.circulation.Borrow(ctx, &BorrowInput{PatronID: patron.ID, ItemID: dune.ID})
	require.NoError(t, err)

	available := true
	result, err := env.catalog.ListItems(ctx, &ListItemsInput{Available: &available})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Total)
	assert.Equal(t, "hyperion", result.Items[0].Title)

	result, err = env.catalog.ListItems(ctx, &ListItemsInput{Search: "dun"})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Total)
	assert.Equal(t, "dune", result.Items[0].Title)
}

func TestDeleteCategoryBlockedByItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := env.seedCategory(t, "fiction")

	_, err := env.catalog.CreateItem(ctx, &CreateItemInput{
		Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593", CategoryID: category.ID,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.catalog.DeleteCategory(ctx, category.ID), ErrCategoryHasItems)
}

func TestCategoryCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.catalog.CreateCategory(ctx, &CreateCategoryInput{Name: "fiction", Description: "novels"})
	require.NoError(t, err)

	updated, err := env.catalog.UpdateCategory(ctx, created.ID, &CreateCategoryInput{Name: "sci-fi"})
	require.NoError(t, err)
	assert.Equal(t, "sci-fi", updated.Name)

	all, err := env.catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, env.catalog.DeleteCategory(ctx, created.ID))
	_, err = env.catalog.GetCategory(ctx, created.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
