package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oyushop/storefront/internal/domain"
)

type inventoryLogRequest struct {
	ProductCode    string    `json:"productCode"`
	ProductName    string    `json:"productName" binding:"required"`
	ImportDate     time.Time `json:"importDate" binding:"required"`
	UnitCost       int64     `json:"unitCost" binding:"gte=0"`
	SalePrice      int64     `json:"salePrice" binding:"gte=0"`
	Quantity       int64     `json:"quantity" binding:"required,gt=0"`
	CargoCost      int64     `json:"cargoCost" binding:"gte=0"`
	InspectionCost int64     `json:"inspectionCost" binding:"gte=0"`
	OtherCost      int64     `json:"otherCost" binding:"gte=0"`
}

func (s *Server) listInventoryLogs(c *gin.Context) {
	logs, err := s.inventoryLogs.List()
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := make([]inventoryLogResponse, 0, len(logs))
	for _, entry := range logs {
		result = append(result, toInventoryLogResponse(entry))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) appendInventoryLog(c *gin.Context) {
	var req inventoryLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	entry, err := s.inventoryLogs.Append(domain.InventoryLog{
		ProductCode:    req.ProductCode,
		ProductName:    req.ProductName,
		ImportDate:     req.ImportDate,
		UnitCost:       req.UnitCost,
		SalePrice:      req.SalePrice,
		Quantity:       req.Quantity,
		CargoCost:      req.CargoCost,
		InspectionCost: req.InspectionCost,
		OtherCost:      req.OtherCost,
		CreatedAt:      s.now(),
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInventoryLogResponse(entry))
}
