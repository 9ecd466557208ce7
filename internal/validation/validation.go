// Package validation содержит проверку входных данных форм панели управления.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Действия над счётом, подставляемые в сообщения об ошибках.
const (
	ActionCreate = "Create"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
)

// Error описывает ошибки валидации формы по полям и общее сообщение.
type Error struct {
	Errors  map[string][]string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) add(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string][]string)
	}
	for _, m := range e.Errors[field] {
		if m == message {
			return
		}
	}
	e.Errors[field] = append(e.Errors[field], message)
}

func (e *Error) has(field string) bool {
	return len(e.Errors[field]) > 0
}

func (e *Error) empty() bool {
	return len(e.Errors) == 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("maxamount", func(fl validator.FieldLevel) bool {
		return fl.Field().Float() <= MaxAmount
	})
	return v
}

// collect переносит нарушения правил структуры в e, используя messages для текста по полю и тегу.
func collect(e *Error, err error, messages func(field, tag string) string) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	for _, fe := range verrs {
		if e.has(fe.Field()) {
			continue
		}
		e.add(fe.Field(), messages(fe.Field(), fe.Tag()))
	}
	return nil
}
