package checkout

import (
	"strings"

	"github.com/lumenstudio/fotofacil/internal/cpf"
	"github.com/lumenstudio/fotofacil/internal/validation"
	"github.com/lumenstudio/fotofacil/pkg/errors"
)

// FormData is the customer identity collected on the checkout step
type FormData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

var formValidator = validation.New()

// rules run in order; only the first failure is reported.
var formRules = []struct {
	field   string
	tag     string
	value   func(FormData) string
	message string
}{
	{"name", "required", func(f FormData) string { return strings.TrimSpace(f.Name) }, "Informe seu nome completo"},
	{"email", "required,contains=@", func(f FormData) string { return strings.TrimSpace(f.Email) }, "Informe um e-mail válido"},
	{"cpf", "required," + validation.TagCPF, func(f FormData) string { return f.CPF }, "CPF inválido"},
}

// Validate returns the first failing rule as *errors.ErrValidation.
func (f FormData) Validate() error {
	for _, rule := range formRules {
		if err := formValidator.Var(rule.value(f), rule.tag); err != nil {
			return &errors.ErrValidation{Field: rule.field, Message: rule.message}
		}
	}
	return nil
}

// normalized trims the fields and reduces the CPF to its digits.
func (f FormData) normalized() FormData {
	return FormData{
		Name:  strings.TrimSpace(f.Name),
		Email: strings.TrimSpace(f.Email),
		CPF:   cpf.Normalize(f.CPF),
	}
}
