package validator

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
)

// GinValidator adapts Validator to gin's binding.StructValidator. Errors
// are returned untranslated so handlers can pick the request language.
type GinValidator struct {
	v *Validator
}

var _ binding.StructValidator = (*GinValidator)(nil)

// NewGinValidator creates the adapter.
func NewGinValidator(v *Validator) *GinValidator {
	return &GinValidator{v: v}
}

// ValidateStruct implements binding.StructValidator.
func (g *GinValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	return g.v.validate.Struct(obj)
}

// Engine implements binding.StructValidator.
func (g *GinValidator) Engine() any {
	return g.v.validate
}

// Install makes v gin's default binding validator.
func Install(v *Validator) {
	binding.Validator = NewGinValidator(v)
}
