package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/lumenstudio/fotofacil/internal/cpf"
)

// TagCPF validates a Brazilian CPF, punctuated or not.
const TagCPF = "cpf"

// New returns a validator with the custom tags registered. It panics if a
// tag cannot be registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	mustRegister(v, TagCPF, validateCPF)
	return v
}

func mustRegister(v *validatorv10.Validate, tag string, fn validatorv10.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

func validateCPF(fl validatorv10.FieldLevel) bool {
	return cpf.Valid(fl.Field().String())
}
