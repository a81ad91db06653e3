package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/service/checkout"
)

type placeOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Qty       int64  `json:"qty" binding:"required,gt=0"`
	Price     int64  `json:"price" binding:"gte=0"`
}

type placeOrderRequest struct {
	CustomerName string                  `json:"customerName" binding:"required"`
	Address      string                  `json:"address" binding:"required"`
	Phone        string                  `json:"phone" binding:"required,mnphone"`
	Notes        string                  `json:"notes"`
	MediaURL     string                  `json:"mediaUrl"`
	PromoCode    string                  `json:"promoCode"`
	Items        []placeOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	items := make([]checkout.PlacementItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, checkout.PlacementItem{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
		})
	}

	order, err := s.checkout.PlaceOrder(checkout.PlacementRequest{
		CustomerName: req.CustomerName,
		Address:      req.Address,
		Phone:        req.Phone,
		Notes:        req.Notes,
		MediaURL:     req.MediaURL,
		PromoCode:    req.PromoCode,
		Items:        items,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "order": toOrderResponse(order)})
}

func (s *Server) listOrders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	orders, err := s.orders.List(limit)
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderResponse(order))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.orders.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	order, err := s.transitions.Transition(c.Param("id"), domain.OrderStatus(req.Status), req.Reason)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(order)})
}

// deleteOrder — административное удаление записи. Это не переход статуса,
// складских побочных эффектов у него нет.
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.orders.Delete(c.Param("id")); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) getOrderTimeline(c *gin.Context) {
	orderID := c.Param("id")

	if _, err := s.orders.Get(orderID); err != nil {
		s.renderError(c, err)
		return
	}

	events, err := s.timeline.List(orderID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			OrderID:  event.OrderID,
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	c.JSON(http.StatusOK, result)
}
