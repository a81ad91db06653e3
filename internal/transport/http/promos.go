package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oyushop/storefront/internal/domain"
)

type validatePromoRequest struct {
	Code     string `json:"code" binding:"required"`
	Subtotal int64  `json:"subtotal" binding:"gte=0"`
}

type createPromoRequest struct {
	Code       string     `json:"code" binding:"required"`
	Type       string     `json:"type" binding:"required,oneof=percent flat"`
	Amount     int64      `json:"amount" binding:"required,gt=0"`
	Active     *bool      `json:"active"`
	UsageLimit int64      `json:"usageLimit" binding:"gte=0"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

// validatePromo — проверка кода без погашения: used_count не меняется.
// Фактическое погашение происходит только внутри конвейера размещения.
func (s *Server) validatePromo(c *gin.Context) {
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	promo, err := s.promos.Find(req.Code)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if !promo.RedeemableAt(s.now()) {
		s.renderError(c, domain.ErrPromoInvalid)
		return
	}

	discount := promo.Discount(req.Subtotal)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"code":     promo.Code,
		"type":     string(promo.Type),
		"amount":   promo.Amount,
		"discount": discount,
		"total":    req.Subtotal - discount,
	})
}

func (s *Server) listPromos(c *gin.Context) {
	promos, err := s.promos.List()
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := make([]promoResponse, 0, len(promos))
	for _, promo := range promos {
		result = append(result, toPromoResponse(promo))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) createPromo(c *gin.Context) {
	var req createPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	promo := domain.PromoCode{
		Code:       domain.NormalizeCode(req.Code),
		Type:       domain.PromoType(req.Type),
		Amount:     req.Amount,
		Active:     active,
		UsageLimit: req.UsageLimit,
		ExpiresAt:  req.ExpiresAt,
		CreatedAt:  s.now(),
	}

	if err := s.promos.Create(promo); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPromoResponse(promo))
}

func (s *Server) deletePromo(c *gin.Context) {
	if err := s.promos.Delete(c.Param("code")); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
