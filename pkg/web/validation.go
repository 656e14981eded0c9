package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// Validator checks request payloads against their `validate` struct tags and
// renders violations as English sentences keyed by JSON field names.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// NewValidator creates a Validator with the English default translations registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		// the bundled translations are static, failing here is a programming error
		panic(fmt.Sprintf("register validator translations: %v", err))
	}
	return &Validator{validate: v, trans: trans}
}

// Messages validates s. It returns one message per violated constraint in
// struct field order, or nil when s is valid. The error is only set when s
// cannot be validated at all (e.g. it is not a struct).
func (v *Validator) Messages(s any) ([]string, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fieldErr.Translate(v.trans))
	}
	return messages, nil
}
