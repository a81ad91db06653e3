package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// adminLogin выдаёт bearer-токен в обмен на административные учётные данные.
func (s *Server) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	// Обе проверки выполняются всегда, чтобы ответ не зависел от того,
	// какое из полей не совпало.
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUsername))
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword))
	if s.adminPassword == "" || userOK&passOK != 1 {
		s.logger.Warn("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": s.adminToken})
}

// requireAdmin пропускает только запросы с корректным bearer-токеном.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}
		c.Next()
	}
}
