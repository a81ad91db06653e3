package domain

// CatalogRepository — авторитетный источник остатков и цен для решений о размещении.
type CatalogRepository interface {
	// Create сохраняет новый товар.
	Create(product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// List возвращает товары с учётом фильтра, отсортированные по SortOrder.
	List(filter ProductFilter) ([]Product, error)
	// Update перезаписывает поля товара или возвращает ErrProductNotFound.
	Update(product Product) error
	// Delete удаляет товар или возвращает ErrProductNotFound.
	Delete(id string) error
	// AdjustStock атомарно применяет stock += delta при условии, что результат
	// неотрицателен. При нарушении условия возвращает *InsufficientStockError,
	// не трогая запись. Возвращающие остаток дельты (+) проходят всегда.
	AdjustStock(id string, delta int64) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// List возвращает заказы от новых к старым с опциональным ограничением на количество.
	List(limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
	// Delete удаляет заказ без складских побочных эффектов (удаление — не переход статуса).
	Delete(id string) error
}

// PromoRepository хранит промокоды и учитывает их использование.
type PromoRepository interface {
	// Create сохраняет промокод; код должен быть нормализован.
	Create(promo PromoCode) error
	// Find ищет код без учёта регистра или возвращает ErrPromoNotFound.
	Find(code string) (PromoCode, error)
	// List возвращает все промокоды.
	List() ([]PromoCode, error)
	// Redeem атомарно инкрементирует used_count, если код всё ещё применим.
	// Возвращает ErrPromoInvalid, когда условие не выполнено (лимит исчерпан
	// конкурентным заказом, код деактивирован или просрочен).
	Redeem(code string) error
	// Delete удаляет промокод или возвращает ErrPromoNotFound.
	Delete(code string) error
}

// InventoryLogRepository хранит учётные записи о закупках.
type InventoryLogRepository interface {
	Append(log InventoryLog) (InventoryLog, error)
	List() ([]InventoryLog, error)
}
