package validator

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"deptrooms/internal/domain"
)

var (
	validate  *validator.Validate
	clockRe   = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:00)?$`)
	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	tagErrors = map[string]string{
		"required":  "is required",
		"min":       "is too small",
		"max":       "is too large",
		"gte":       "is too small",
		"lte":       "is too large",
		"oneof":     "has an unsupported value",
		"clock":     "must be formatted as HH:MM",
		"date":      "must be formatted as YYYY-MM-DD",
		"gtfield":   "must be after the start",
		"gtcsfield": "must be after the start",
	}
)

func init() {
	validate = validator.New()
	register(validate)

	// gin binding runs its own validator; give it the same field names and tags
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f.Tag.Get("json"), f.Tag.Get("form"), f.Name)
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		return dateRe.MatchString(fl.Field().String())
	})
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	return fieldErrors(verrs)
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	errs := make(map[string]string)
	for _, fe := range verrs {
		msg, ok := tagErrors[fe.Tag()]
		if !ok {
			msg = "failed " + fe.Tag()
		}
		errs[fe.Field()] = msg
	}
	return errs
}

// FromBindError turns a gin ShouldBind* failure into a *domain.ValidationError
// so bind and domain failures share one {field: message} shape.
func FromBindError(err error) error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		syntax  *json.SyntaxError
		numErr  *strconv.NumError
	)
	switch {
	case errors.As(err, &verrs):
		return &domain.ValidationError{Fields: fieldErrors(verrs)}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return domain.NewValidationError(field, "must be a "+typeErr.Type.String())
	case errors.As(err, &syntax), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return domain.NewValidationError("body", "must be a valid JSON object")
	case errors.As(err, &numErr):
		return domain.NewValidationError("query", "has a malformed value")
	}
	return domain.NewValidationError("request", "is malformed")
}

// Check runs Validate and wraps failures in a *domain.ValidationError.
func Check(v interface{}) error {
	fields := Validate(v)
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Fields: fields}
}

func jsonName(tags ...string) string {
	for _, tag := range tags {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			continue
		}
		if name != "" {
			return name
		}
	}
	return ""
}
