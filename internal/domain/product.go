package domain

import "time"

// Category — тег категории товара в витрине.
type Category string

const (
	// CategoryBaby — товары для детей.
	CategoryBaby Category = "baby"
	// CategoryMoms — товары для мам.
	CategoryMoms Category = "moms"
)

// Product описывает товар каталога. Поле Stock — защищаемый инвариант
// подсистемы размещения заказов: остаток никогда не уходит в минус.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price — цена в целых единицах валюты (₮), без дробной части.
	Price    int64
	Category Category
	Image    string
	Images   []string
	Stock    int64
	// SortOrder задаёт порядок отображения в витрине.
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price < 0 {
		errs = append(errs, ErrProductPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockNegative)
	}

	return errs
}

// ProductFilter ограничивает выборку каталога.
type ProductFilter struct {
	// Category фильтрует по категории; пустое значение — без фильтра.
	Category Category
	// LowStockBelow > 0 оставляет только товары с остатком строго меньше порога.
	LowStockBelow int64
}
