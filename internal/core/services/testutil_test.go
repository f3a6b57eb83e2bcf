package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/core/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv bundles an in-memory database with the repositories and services
// under test.
type testEnv struct {
	db          *gorm.DB
	patronRepo  *repositories.PatronRepository
	itemRepo    *repositories.ItemRepository
	loanRepo    *repositories.LoanRepository
	circulation *CirculationService
	catalog     *CatalogService
	sweep       *SweepService
	policy      domain.Policy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	patronRepo := repositories.NewPatronRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	circulation := NewCirculationService(db, loanRepo, itemRepo, patronRepo, domain.DefaultPolicy())

	return &testEnv{
		db:          db,
		patronRepo:  patronRepo,
		itemRepo:    itemRepo,
		loanRepo:    loanRepo,
		circulation: circulation,
		catalog:     NewCatalogService(db, itemRepo, categoryRepo, loanRepo),
		sweep:       NewSweepService(db, loanRepo, itemRepo, repositories.NewRefreshTokenRepository(db)),
		policy:      circulation.Policy(),
	}
}

func (e *testEnv) seedPatron(t *testing.T, name string) *models.Patron {
	t.Helper()
	patron := &models.Patron{
		Name:           name,
		Email:          fmt.Sprintf("%s@example.com", name),
		Password:       "irrelevant",
		Role:           string(domain.RoleMember),
		DocumentNumber: "DOC-" + name,
		Active:         true,
	}
	require.NoError(t, e.db.Create(patron).Error)
	return patron
}

func (e *testEnv) seedCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, e.db.Create(category).Error)
	return category
}

func (e *testEnv) seedItem(t *testing.T, title string, copies int) *models.Item {
	t.Helper()
	category := e.seedCategory(t, "cat-"+title)
	item := &models.Item{
		Title:           title,
		Author:          "Test Author",
		ISBN:            "isbn-" + title,
		CategoryID:      category.ID,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, e.db.Create(item).Error)
	return item
}

func (e *testEnv) available(t *testing.T, itemID uint) int {
	t.Helper()
	n, err := e.itemRepo.GetAvailable(context.Background(), itemID)
	require.NoError(t, err)
	return n
}

// backdate moves a loan record's due date into the past, bypassing the
// service layer so tests can simulate the passage of time.
func (e *testEnv) backdate(t *testing.T, loanID uint, dueAt time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.LoanRecord{}).
		Where("id = ?", loanID).
		UpdateColumn("due_at", dueAt).Error)
}

// checkInventoryInvariant asserts that available copies plus copies held by
// active records equals the total for the item.
func (e *testEnv) checkInventoryInvariant(t *testing.T, itemID uint) {
	t.Helper()

	var item models.Item
	require.NoError(t, e.db.First(&item, itemID).Error)

	active, err := e.loanRepo.CountActiveByItem(context.Background(), itemID)
	require.NoError(t, err)

	require.Equal(t, item.TotalCopies, item.AvailableCopies+int(active),
		"available (%d) + active records (%d) must equal total (%d)",
		item.AvailableCopies, active, item.TotalCopies)
}
