package zuordnung

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schulportal/core"
)

var (
	nowFunc = time.Now // mockable

	befristungTag  = "befristung"
	befristungText = "{0} must be a date (YYYY-MM-DD) that is not in the past"
)

// RegisterValidators registers the Zuordnung specific validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(befristungTag, befristungValidation)
	core.RegisterCustomTranslation(validate, translator, befristungTag, befristungText)
}

// ValidBefristung reports whether `value` is empty (unlimited) or an ISO date from today onwards.
func ValidBefristung(value string) bool {
	value = core.CleanString(value)
	if value == "" {
		return true
	}
	t, ok := ParseBefristung(value)
	if !ok {
		return false
	}
	now := nowFunc()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !t.Before(today)
}

func befristungValidation(fl validator.FieldLevel) bool {
	return ValidBefristung(fl.Field().String())
}
