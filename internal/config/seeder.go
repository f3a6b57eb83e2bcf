package config

import (
	"log"

	"biblios/internal/adapters/persistence/models"
	"biblios/internal/core/domain"
	"biblios/internal/pkg/password"

	"gorm.io/gorm"
)

// SeedMasterData seeds the admin account and default categories
func SeedMasterData(db *gorm.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	if err := seedCategories(db); err != nil {
		return err
	}

	log.Println("✅ Master data seeded successfully")
	return nil
}

func seedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Patron{}).
		Where("role = ?", string(domain.RoleAdmin)).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := password.Hash(getEnv("ADMIN_PASSWORD", "changeme123"))
	if err != nil {
		return err
	}

	admin := &models.Patron{
		Name:           "Administrator",
		Email:          getEnv("ADMIN_EMAIL", "admin@biblios.local"),
		Password:       hashed,
		Role:           string(domain.RoleAdmin),
		DocumentType:   "internal",
		DocumentNumber: "ADMIN-0001",
		Active:         true,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin account seeded: %s", admin.Email)
	return nil
}

func seedCategories(db *gorm.DB) error {
	categories := []models.Category{
		{Name: "General", Description: "Uncategorized works"},
		{Name: "Fiction", Description: "Novels and short stories"},
		{Name: "Non-fiction", Description: "Essays, biographies and reference works"},
		{Name: "Children", Description: "Works for young readers"},
	}

	for _, category := range categories {
		var existing models.Category
		err := db.Where("name = ?", category.Name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&category).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	return nil
}
