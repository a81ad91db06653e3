package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oyushop/storefront/internal/domain"
)

type productRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       int64    `json:"price" binding:"gte=0"`
	Category    string   `json:"category" binding:"required,oneof=baby moms"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
	Stock       int64    `json:"stock" binding:"gte=0"`
	SortOrder   int      `json:"sortOrder"`
}

func (s *Server) listProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Category: domain.Category(c.Query("category")),
	}
	if raw := c.Query("lowStock"); raw != "" {
		threshold, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || threshold < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "lowStock must be a non-negative integer"})
			return
		}
		filter.LowStockBelow = threshold
	}

	products, err := s.catalog.List(filter)
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := make([]productResponse, 0, len(products))
	for _, product := range products {
		result = append(result, toProductResponse(product))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	now := s.now()
	product := domain.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    domain.Category(req.Category),
		Image:       req.Image,
		Images:      req.Images,
		Stock:       req.Stock,
		SortOrder:   req.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := product.ValidateInvariants(); len(errs) != 0 {
		s.renderError(c, errs[0])
		return
	}

	if err := s.catalog.Create(product); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (s *Server) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	current, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	current.Name = req.Name
	current.Description = req.Description
	current.Price = req.Price
	current.Category = domain.Category(req.Category)
	current.Image = req.Image
	current.Images = req.Images
	current.Stock = req.Stock
	current.SortOrder = req.SortOrder
	current.UpdatedAt = s.now()

	if errs := current.ValidateInvariants(); len(errs) != 0 {
		s.renderError(c, errs[0])
		return
	}

	if err := s.catalog.Update(current); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(current))
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.catalog.Delete(c.Param("id")); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
