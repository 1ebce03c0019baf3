package util

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

func ValidateDTO(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			firstError := vErrs[0]
			// 保留 ValidationErrors 类型，响应层据此映射为参数错误
			return fmt.Errorf("字段 [%s] 校验失败，规则 [%s]: %w",
				firstError.Field(),
				firstError.Tag(),
				vErrs)
		}
		return err
	}
	return nil
}
