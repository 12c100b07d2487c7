package analysis

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// RoutineSize is the exact number of products in a routine.
const RoutineSize = 4

// Routine categories matched case-insensitively against product_type.
var (
	requiredCategories  = []string{"cleanser", "moisturizer", "sunscreen"}
	treatmentCategories = []string{"serum", "toner", "treatment"}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("habit", func(fl validator.FieldLevel) bool {
		return IsHabit(fl.Field().String())
	})
	_ = v.RegisterValidation("ingredient", func(fl validator.FieldLevel) bool {
		return IsIngredient(fl.Field().String())
	})
	return v
}

// Validate checks r against the output schema. The returned error wraps
// domain.ErrSchemaViolation and is a *domain.SchemaError describing the first violation.
func Validate(r *Result) error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return schemaErrorFromField(fieldErrs[0])
		}
		return &domain.SchemaError{Path: "$", Rule: domain.RuleMalformed, Message: err.Error()}
	}
	return validateRoutine(r.Routine.Products)
}

func validateRoutine(products []RoutineProduct) error {
	if len(products) != RoutineSize {
		return &domain.SchemaError{
			Path:    "routine.products",
			Rule:    domain.RuleProductCount,
			Message: fmt.Sprintf("expected exactly %d products, got %d", RoutineSize, len(products)),
		}
	}

	treatments := 0
	for i := range products {
		if matchesAny(products[i].ProductType, treatmentCategories) {
			treatments++
		}
	}
	if treatments != 1 {
		return &domain.SchemaError{
			Path:    "routine.products",
			Rule:    domain.RuleExactlyOneTreatment,
			Message: fmt.Sprintf("expected exactly one serum, toner or treatment, got %d", treatments),
		}
	}

	for _, category := range requiredCategories {
		found := false
		for i := range products {
			if strings.Contains(strings.ToLower(products[i].ProductType), category) {
				found = true
				break
			}
		}
		if !found {
			return &domain.SchemaError{
				Path:    "routine.products",
				Rule:    domain.RuleMissingCategory,
				Message: "missing " + category,
			}
		}
	}
	return nil
}

func matchesAny(productType string, categories []string) bool {
	lower := strings.ToLower(productType)
	for _, c := range categories {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func schemaErrorFromField(fe validator.FieldError) *domain.SchemaError {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}

	rule := domain.RuleRange
	var msg string
	switch fe.Tag() {
	case "required":
		rule = domain.RuleRequired
		msg = "is required"
	case "oneof", "habit", "ingredient":
		rule = domain.RuleEnum
		msg = fmt.Sprintf("value %v is not an allowed value", fe.Value())
	case "min", "max":
		if fe.Kind() == reflect.String {
			rule = domain.RuleLength
			msg = fmt.Sprintf("length must satisfy %s=%s, got %d",
				fe.Tag(), fe.Param(), len([]rune(fe.Value().(string))))
		} else {
			msg = fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value())
		}
	default:
		msg = fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value())
	}
	return &domain.SchemaError{Path: path, Rule: rule, Message: msg}
}
