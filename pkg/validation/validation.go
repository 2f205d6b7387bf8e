// Package validation wraps go-playground/validator with English translations
// so failures can be reported per field.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/slug"
)

const (
	notBlankTag = "notblank"
	sluggedTag  = "slugged"
)

// Validator validates request structs and translates failures into field messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator with English messages and form/json field names.
func New() *Validator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(fieldName)

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(sluggedTag, slugged)
	registerTranslation(validate, translator, notBlankTag, "{0} cannot be blank")
	registerTranslation(validate, translator, sluggedTag, "{0} must contain at least one letter or digit")

	return &Validator{validate: validate, translator: translator}
}

// Engine exposes the underlying validator for callers that need raw access.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Struct validates s. A failure is returned as a ValidationFailed error whose
// Fields map holds one message per offending field.
func (v *Validator) Struct(s interface{}, message string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = fe.Translate(v.translator)
	}
	out := appErrors.Validation(message, fields)
	out.Err = err
	return out
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// slugged rejects names whose derived slug would be empty.
func slugged(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return slug.Make(s) != ""
	}
	return true
}
