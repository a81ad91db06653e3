package memory

import (
	"time"

	"github.com/oyushop/storefront/internal/domain"
)

// DemoProducts — стартовый каталог для fallback-режима без базы данных,
// чтобы витрина оставалась рабочей при недоступном хранилище.
func DemoProducts() []domain.Product {
	now := time.Now().UTC()
	return []domain.Product{
		{
			ID:          "1",
			Name:        "Хүүхдийн нөөрдөг",
			Description: "Дулаан, тав тухтай нөөрдөг",
			Price:       25000,
			Category:    domain.CategoryBaby,
			Stock:       15,
			SortOrder:   1,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "2",
			Name:        "Эхийн өд өмсөлт",
			Description: "Удаан хугацаанд өмсөх боломжтой",
			Price:       45000,
			Category:    domain.CategoryMoms,
			Stock:       8,
			SortOrder:   2,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "3",
			Name:        "Хүүхдийн идэвхтэй тоглоом",
			Description: "Аюулгүй материалаар хийсэн тоглоом",
			Price:       35000,
			Category:    domain.CategoryBaby,
			Stock:       12,
			SortOrder:   3,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "4",
			Name:        "Хүүхдийн сав",
			Description: "Нэг дарц нээх сав",
			Price:       18000,
			Category:    domain.CategoryBaby,
			Stock:       20,
			SortOrder:   4,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// SeedCatalog наполняет каталог демонстрационными товарами.
func SeedCatalog(repo domain.CatalogRepository, products []domain.Product) error {
	for _, product := range products {
		if err := repo.Create(product); err != nil {
			return err
		}
	}
	return nil
}
