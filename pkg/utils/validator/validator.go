// Package validator wraps go-playground/validator with en/zh translations
// and the custom rules used by request payloads.
package validator

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// TagName is the struct tag read by the validator. It matches gin's binding
// tag so the validator can replace gin's default one.
const TagName = "binding"

// Validator validates structs and translates failures.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
}

var (
	global     *Validator
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// New creates a validator with en and zh translators and the custom rules.
func New() *Validator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		uni:      uni,
		trans:    make(map[string]ut.Translator),
	}
	v.validate.SetTagName(TagName)

	// Report JSON field names rather than Go field names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if t, ok := uni.GetTranslator(LangEN); ok {
		_ = en_translations.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangEN] = t
	}
	if t, ok := uni.GetTranslator(LangZH); ok {
		_ = zh_translations.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangZH] = t
	}

	v.registerCustomRules()
	v.registerCustomTranslations()
	return v
}

// Global returns the shared validator.
func Global() *Validator {
	globalOnce.Do(func() {
		globalMu.Lock()
		if global == nil {
			global = New()
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetGlobal replaces the shared validator.
func SetGlobal(v *Validator) {
	globalOnce.Do(func() {})
	globalMu.Lock()
	global = v
	globalMu.Unlock()
}

// GetTranslator returns the translator for lang, or nil.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	return v.trans[lang]
}

// Engine returns the underlying validator.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Validate validates obj and returns English messages.
func (v *Validator) Validate(obj any) error {
	return v.ValidateWithLang(obj, LangEN)
}

// ValidateWithLang validates obj and returns *ValidationErrors translated into lang.
func (v *Validator) ValidateWithLang(obj any, lang string) error {
	return v.Translate(v.validate.Struct(obj), lang)
}

// ValidateVar validates a single value against tag.
func (v *Validator) ValidateVar(field any, tag string) error {
	return v.Translate(v.validate.Var(field, tag), LangEN)
}

// Translate converts validator errors into *ValidationErrors. Other errors
// and nil pass through unchanged.
func (v *Validator) Translate(err error, lang string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	trans := v.GetTranslator(lang)
	if trans == nil {
		trans = v.trans[LangEN]
	}

	out := NewValidationErrors()
	for _, fe := range verrs {
		out.AppendError(FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fe.Translate(trans),
		})
	}
	return out
}
