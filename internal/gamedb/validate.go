package gamedb

import (
	"github.com/go-playground/validator/v10"

	"github.com/John-Robertt/ps4ren/internal/domain"
)

// validate 可并发使用；只在包初始化时注册一次。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("titleid", validateTitleID)
	return v
}

// validateTitleID 要求字段已是规范化（大写）的完整 title id。
func validateTitleID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	id, ok := domain.ParseTitleID(s)
	return ok && string(id) == s
}
