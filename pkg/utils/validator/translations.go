package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func (v *Validator) registerCustomTranslations() {
	if t := v.GetTranslator(LangEN); t != nil {
		for tag, msg := range map[string]string{
			TagNotBlank:     "{0} must not be blank",
			TagNoWhitespace: "{0} must not contain whitespace characters",
			TagFilename:     "{0} must be a plain file name",
		} {
			registerTranslation(v.validate, t, tag, msg)
		}
	}

	if t := v.GetTranslator(LangZH); t != nil {
		for tag, msg := range map[string]string{
			TagNotBlank:     "{0}不能为空白",
			TagNoWhitespace: "{0}不能包含空白字符",
			TagFilename:     "{0}必须是不含路径的文件名",
		} {
			registerTranslation(v.validate, t, tag, msg)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}

// RegisterTranslation registers a single translation override.
func (v *Validator) RegisterTranslation(lang, tag, message string) {
	if t := v.GetTranslator(lang); t != nil {
		registerTranslation(v.validate, t, tag, message)
	}
}
