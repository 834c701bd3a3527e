package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	NotBlankTag  = "notblank"
	notBlankText = "{0} is required"

	MobileTag   = "mobile"
	mobileText  = "{0} must be exactly 10 digits"
	mobileRegex = regexp.MustCompile(`^[0-9]{10}$`)

	// permissive local@domain.tld shape; stricter RFC checks reject addresses the backend accepts
	EmailAddrTag   = "emailaddr"
	emailAddrText  = "{0} must be a valid email address"
	emailAddrRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	InitValidators(Validate, Translator)
}

// InitValidators registers translations, tag names and custom validators on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(NotBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, NotBlankTag, notBlankText)

	_ = validate.RegisterValidation(MobileTag, mobileValidation)
	RegisterCustomTranslation(validate, translator, MobileTag, mobileText)

	_ = validate.RegisterValidation(EmailAddrTag, emailAddrValidation)
	RegisterCustomTranslation(validate, translator, EmailAddrTag, emailAddrText)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// notBlankValidation rejects empty and whitespace-only strings.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// mobileValidation only allows exactly 10 ASCII digits.
func mobileValidation(fl validator.FieldLevel) bool {
	return mobileRegex.MatchString(fl.Field().String())
}

func emailAddrValidation(fl validator.FieldLevel) bool {
	return emailAddrRegex.MatchString(fl.Field().String())
}
