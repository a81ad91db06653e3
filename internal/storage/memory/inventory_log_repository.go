package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oyushop/storefront/internal/domain"
)

// inventoryLogRepositoryInMemory хранит учётные записи о закупках в памяти.
type inventoryLogRepositoryInMemory struct {
	mu      sync.RWMutex
	entries []domain.InventoryLog
}

// NewInventoryLogRepository возвращает in-memory реализацию InventoryLogRepository.
func NewInventoryLogRepository() domain.InventoryLogRepository {
	return &inventoryLogRepositoryInMemory{}
}

// Append добавляет запись, присваивая идентификатор при необходимости.
func (r *inventoryLogRepositoryInMemory) Append(entry domain.InventoryLog) (domain.InventoryLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

// List возвращает записи от новых к старым.
func (r *inventoryLogRepositoryInMemory) List() ([]domain.InventoryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.InventoryLog, len(r.entries))
	copy(result, r.entries)
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

var _ domain.InventoryLogRepository = (*inventoryLogRepositoryInMemory)(nil)
