package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/oyushop/storefront/internal/domain"
)

// promoRepositoryInMemory — in-memory хранилище промокодов.
type promoRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.PromoCode
}

// NewPromoRepository возвращает in-memory реализацию PromoRepository.
func NewPromoRepository() domain.PromoRepository {
	return &promoRepositoryInMemory{
		items: make(map[string]domain.PromoCode),
	}
}

// Create сохраняет промокод, нормализуя код.
func (r *promoRepositoryInMemory) Create(promo domain.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo.Code = domain.NormalizeCode(promo.Code)
	if _, exists := r.items[promo.Code]; exists {
		return domain.ErrPromoExists
	}
	r.items[promo.Code] = promo
	return nil
}

// Find ищет код без учёта регистра.
func (r *promoRepositoryInMemory) Find(code string) (domain.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	promo, ok := r.items[domain.NormalizeCode(code)]
	if !ok {
		return domain.PromoCode{}, domain.ErrPromoNotFound
	}
	return promo, nil
}

// List возвращает промокоды, отсортированные по коду.
func (r *promoRepositoryInMemory) List() ([]domain.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.PromoCode, 0, len(r.items))
	for _, promo := range r.items {
		result = append(result, promo)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// Redeem инкрементирует used_count под мьютексом, повторяя условный
// atomic increment durable-хранилища: проверка применимости и инкремент —
// один критический участок.
func (r *promoRepositoryInMemory) Redeem(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeCode(code)
	promo, ok := r.items[key]
	if !ok {
		return domain.ErrPromoNotFound
	}
	if !promo.RedeemableAt(time.Now().UTC()) {
		return domain.ErrPromoInvalid
	}

	promo.UsedCount++
	r.items[key] = promo
	return nil
}

// Delete удаляет промокод или возвращает ErrPromoNotFound.
func (r *promoRepositoryInMemory) Delete(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeCode(code)
	if _, ok := r.items[key]; !ok {
		return domain.ErrPromoNotFound
	}
	delete(r.items, key)
	return nil
}

var _ domain.PromoRepository = (*promoRepositoryInMemory)(nil)
