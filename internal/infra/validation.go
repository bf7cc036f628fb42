package infra

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xela07ax/promulher-api/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В ошибках используем имена полей из JSON, как их видит клиент
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct возвращает *domain.ValidationError с сообщениями по полям.
// Список Missing сохраняет порядок объявления полей в структуре.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	var missing []string
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			missing = append(missing, field)
			fields[field] = fmt.Sprintf("%s é obrigatório", field)
		case "email":
			fields[field] = "Formato de email inválido"
		case "min":
			fields[field] = fmt.Sprintf("%s deve ter pelo menos %s caracteres", field, fe.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s inválido. Valores permitidos: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			fields[field] = fmt.Sprintf("%s inválido", field)
		}
	}

	msg := "Dados inválidos"
	if len(missing) > 0 {
		msg = "Campos obrigatórios ausentes: " + strings.Join(missing, ", ")
	}
	return domain.NewValidationError(msg, fields)
}
