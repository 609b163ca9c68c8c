package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PublicTokenPrefix starts every public token Plaid Link hands to clients.
const PublicTokenPrefix = "public-"

// Validator is go-playground/validator with the not_blank and public_token tags registered.
// Field names in errors follow the json tag. It satisfies echo.Validator.
type Validator struct {
	engine *validator.Validate
}

var shared = sync.OnceValue(New)

// Default returns the process-wide validator.
func Default() *Validator {
	return shared()
}

func New() *Validator {
	engine := validator.New(validator.WithRequiredStructEnabled())

	engine.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range map[string]validator.Func{
		"not_blank":    notBlank,
		"public_token": publicToken,
	} {
		if err := engine.RegisterValidation(tag, fn); err != nil {
			panic("register " + tag + ": " + err.Error())
		}
	}

	return &Validator{engine: engine}
}

// Validate checks the validate struct tags of i.
func (v *Validator) Validate(i interface{}) error {
	return v.engine.Struct(i)
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// notBlank rejects strings made only of whitespace. Nil pointers pass; pair with required when needed.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	return field.Kind() == reflect.String && strings.TrimSpace(field.String()) != ""
}

// publicToken checks the shape of a Plaid Link public token such as public-sandbox-<uuid>.
func publicToken(fl validator.FieldLevel) bool {
	token := fl.Field().String()
	rest, ok := strings.CutPrefix(token, PublicTokenPrefix)
	return ok && rest != "" && !strings.ContainsAny(token, " \t\r\n")
}
