package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/oyushop/storefront/internal/domain"
)

// catalogRepositoryInMemory — in-memory зеркало каталога для fallback-режима.
// Обязано повторять контракт условного изменения остатка durable-хранилища,
// иначе корректность молча теряется при недоступности базы.
type catalogRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewCatalogRepository возвращает in-memory реализацию CatalogRepository.
func NewCatalogRepository() domain.CatalogRepository {
	return &catalogRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новый товар.
func (r *catalogRepositoryInMemory) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	product.Images = append([]string(nil), product.Images...)
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *catalogRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает товары по фильтру, отсортированные по SortOrder, затем по имени.
func (r *catalogRepositoryInMemory) List(filter domain.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.LowStockBelow > 0 && product.Stock >= filter.LowStockBelow {
			continue
		}
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// Update перезаписывает товар или возвращает ErrProductNotFound.
func (r *catalogRepositoryInMemory) Update(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = product
	return nil
}

// Delete удаляет товар или возвращает ErrProductNotFound.
func (r *catalogRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

// AdjustStock применяет stock += delta под мьютексом: проверка и запись —
// один критический участок, поэтому остаток не уходит в минус даже при
// гонке с конкурентным заказом.
func (r *catalogRepositoryInMemory) AdjustStock(id string, delta int64) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}

	if product.Stock+delta < 0 {
		return domain.Product{}, &domain.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Stock,
			Requested: -delta,
		}
	}

	product.Stock += delta
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
