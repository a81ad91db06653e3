package http

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// registerCustomValidators добавляет доменные правила в валидатор gin.
func registerCustomValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("mnphone", validMongolianPhone)
	})
}

// validMongolianPhone принимает местный восьмизначный номер,
// с необязательным префиксом +976 и разделителями.
func validMongolianPhone(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	cleaned = strings.TrimPrefix(cleaned, "+976")

	if len(cleaned) != 8 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
