package session

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

var (
	statusTag  = "session_status"
	statusText = "unknown status"
)

// InitValidators registers Session custom validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// statusValidation only allows the defined lifecycle states.
func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}
