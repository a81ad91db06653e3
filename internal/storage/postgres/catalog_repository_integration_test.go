package postgres

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oyushop/storefront/internal/domain"
)

func TestCatalogRepository_PostgresCRUDAndFilter(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	crib := sampleProduct("product-crib", domain.CategoryBaby, 250000, 12, now)
	crib.SortOrder = 1
	tea := sampleProduct("product-tea", domain.CategoryMoms, 18000, 3, now)
	tea.SortOrder = 2

	if err := repo.Create(crib); err != nil {
		t.Fatalf("create crib: %v", err)
	}
	if err := repo.Create(tea); err != nil {
		t.Fatalf("create tea: %v", err)
	}

	got, err := repo.Get(crib.ID)
	if err != nil {
		t.Fatalf("get crib: %v", err)
	}
	if got.Name != crib.Name || got.Price != crib.Price || got.Stock != crib.Stock {
		t.Fatalf("unexpected product payload: %+v", got)
	}
	if len(got.Images) != len(crib.Images) {
		t.Fatalf("unexpected images count: got=%d want=%d", len(got.Images), len(crib.Images))
	}

	babyOnly, err := repo.List(domain.ProductFilter{Category: domain.CategoryBaby})
	if err != nil {
		t.Fatalf("list baby category: %v", err)
	}
	if len(babyOnly) != 1 || babyOnly[0].ID != crib.ID {
		t.Fatalf("unexpected category filter result: %+v", babyOnly)
	}

	lowStock, err := repo.List(domain.ProductFilter{LowStockBelow: 5})
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	if len(lowStock) != 1 || lowStock[0].ID != tea.ID {
		t.Fatalf("unexpected low stock result: %+v", lowStock)
	}

	all, err := repo.List(domain.ProductFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != crib.ID {
		t.Fatalf("expected sort_order ordering, got %+v", all)
	}

	crib.Price = 240000
	crib.Stock = 10
	if err := repo.Update(crib); err != nil {
		t.Fatalf("update crib: %v", err)
	}
	updated, err := repo.Get(crib.ID)
	if err != nil {
		t.Fatalf("get updated crib: %v", err)
	}
	if updated.Price != 240000 || updated.Stock != 10 {
		t.Fatalf("unexpected product after update: %+v", updated)
	}

	if err := repo.Delete(tea.ID); err != nil {
		t.Fatalf("delete tea: %v", err)
	}
	if _, err := repo.Get(tea.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := repo.Delete(tea.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on repeated delete, got %v", err)
	}
	if err := repo.Update(tea); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on update missing, got %v", err)
	}
}

func TestCatalogRepository_PostgresAdjustStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	product := sampleProduct("product-adjust", domain.CategoryBaby, 50000, 5, now)
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	after, err := repo.AdjustStock(product.ID, -3)
	if err != nil {
		t.Fatalf("deduct within stock: %v", err)
	}
	if after.Stock != 2 {
		t.Fatalf("expected stock 2 after deduct, got %d", after.Stock)
	}

	_, err = repo.AdjustStock(product.ID, -3)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected typed InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 2 || insufficient.Requested != 3 {
		t.Fatalf("unexpected insufficiency details: %+v", insufficient)
	}

	// Возврат остатка проходит всегда.
	restored, err := repo.AdjustStock(product.ID, 3)
	if err != nil {
		t.Fatalf("restore stock: %v", err)
	}
	if restored.Stock != 5 {
		t.Fatalf("expected stock 5 after restore, got %d", restored.Stock)
	}

	if _, err := repo.AdjustStock("missing-product", -1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for missing product, got %v", err)
	}
}

func TestCatalogRepository_PostgresAdjustStockNoOversell(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	product := sampleProduct("product-race", domain.CategoryBaby, 30000, 10, now)
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AdjustStock(product.ID, -1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("unexpected error from concurrent deduct: %v", err)
		}
	}
	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful deductions, got %d", succeeded)
	}

	final, err := repo.Get(product.ID)
	if err != nil {
		t.Fatalf("get final product: %v", err)
	}
	if final.Stock != 0 {
		t.Fatalf("expected zero stock after race, got %d", final.Stock)
	}
}

func sampleProduct(id string, category domain.Category, price, stock int64, createdAt time.Time) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        "product " + id,
		Description: "integration fixture",
		Price:       price,
		Category:    category,
		Image:       "/uploads/" + id + ".jpg",
		Images:      []string{"/uploads/" + id + "-1.jpg", "/uploads/" + id + "-2.jpg"},
		Stock:       stock,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}
