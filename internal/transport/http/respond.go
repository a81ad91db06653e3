package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oyushop/storefront/internal/domain"
)

// renderError переводит доменную ошибку в HTTP-ответ единого формата.
// Контракт ошибки: {"success": false, "message": "..."}.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var lineErr *domain.ProductNotFoundError
	switch {
	// Неизвестный товар в корзине — клиент обновляет корзину и повторяет,
	// в отличие от прямого запроса несуществующего ресурса.
	case errors.As(err, &lineErr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrPromoNotFound):
		status = http.StatusNotFound
	// Нехватка остатка — клиентская ошибка корзины: покупатель правит
	// количество и повторяет запрос, поэтому 400, а не конфликт.
	case errors.Is(err, domain.ErrInsufficientStock):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderVersionConflict),
		errors.Is(err, domain.ErrPromoExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case isValidationError(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("internal error")
	}

	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrCustomerNameRequired,
		domain.ErrAddressRequired,
		domain.ErrPhoneRequired,
		domain.ErrItemsRequired,
		domain.ErrItemQtyInvalid,
		domain.ErrItemPriceInvalid,
		domain.ErrAmountMismatch,
		domain.ErrProductNameRequired,
		domain.ErrProductPriceNegative,
		domain.ErrProductStockNegative,
		domain.ErrPromoInvalid,
		domain.ErrStatusInvalid,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

type orderItemResponse struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Qty         int64  `json:"qty"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	CustomerName   string              `json:"customerName"`
	Address        string              `json:"address"`
	Phone          string              `json:"phone"`
	Notes          string              `json:"notes,omitempty"`
	MediaURL       string              `json:"mediaUrl,omitempty"`
	Items          []orderItemResponse `json:"items"`
	Subtotal       int64               `json:"subtotal"`
	DiscountAmount int64               `json:"discountAmount"`
	PromoCode      string              `json:"promoCode,omitempty"`
	TotalPrice     int64               `json:"totalPrice"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Qty:         item.Qty,
		})
	}

	return orderResponse{
		ID:             order.ID,
		CustomerName:   order.CustomerName,
		Address:        order.Address,
		Phone:          order.Phone,
		Notes:          order.Notes,
		MediaURL:       order.MediaURL,
		Items:          items,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		PromoCode:      order.PromoCode,
		TotalPrice:     order.TotalPrice,
		Status:         string(order.Status),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Category    string    `json:"category"`
	Image       string    `json:"image,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Stock       int64     `json:"stock"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    string(product.Category),
		Image:       product.Image,
		Images:      product.Images,
		Stock:       product.Stock,
		SortOrder:   product.SortOrder,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

type promoResponse struct {
	Code       string     `json:"code"`
	Type       string     `json:"type"`
	Amount     int64      `json:"amount"`
	Active     bool       `json:"active"`
	UsageLimit int64      `json:"usageLimit"`
	UsedCount  int64      `json:"usedCount"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toPromoResponse(promo domain.PromoCode) promoResponse {
	return promoResponse{
		Code:       promo.Code,
		Type:       string(promo.Type),
		Amount:     promo.Amount,
		Active:     promo.Active,
		UsageLimit: promo.UsageLimit,
		UsedCount:  promo.UsedCount,
		ExpiresAt:  promo.ExpiresAt,
		CreatedAt:  promo.CreatedAt,
	}
}

type inventoryLogResponse struct {
	ID             string    `json:"id"`
	ProductCode    string    `json:"productCode,omitempty"`
	ProductName    string    `json:"productName"`
	ImportDate     time.Time `json:"importDate"`
	UnitCost       int64     `json:"unitCost"`
	SalePrice      int64     `json:"salePrice"`
	Quantity       int64     `json:"quantity"`
	CargoCost      int64     `json:"cargoCost"`
	InspectionCost int64     `json:"inspectionCost"`
	OtherCost      int64     `json:"otherCost"`
	Profit         int64     `json:"profit"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toInventoryLogResponse(entry domain.InventoryLog) inventoryLogResponse {
	return inventoryLogResponse{
		ID:             entry.ID,
		ProductCode:    entry.ProductCode,
		ProductName:    entry.ProductName,
		ImportDate:     entry.ImportDate,
		UnitCost:       entry.UnitCost,
		SalePrice:      entry.SalePrice,
		Quantity:       entry.Quantity,
		CargoCost:      entry.CargoCost,
		InspectionCost: entry.InspectionCost,
		OtherCost:      entry.OtherCost,
		Profit:         entry.Profit(),
		CreatedAt:      entry.CreatedAt,
	}
}

type timelineEventResponse struct {
	OrderID  string    `json:"orderId"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}
