// Package inputval validates form and JSON input structs before anything is
// written to the store.
//
// Structs declare their rules with `validate` tags (go-playground/validator)
// and a human label with a `label` tag:
//
//	type ArticleInput struct {
//	    Title string `json:"title" validate:"required,min=5,max=200" label:"Title"`
//	}
//
// Validate returns a Result holding one message per failed field, already
// phrased for display.
package inputval

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule. Field is the input's JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the errors from one Validate call.
type Result struct {
	Errors []FieldError `json:"errors"`
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields maps field name to its first message.
func (r *Result) Fields() map[string]string {
	out := map[string]string{}
	if r == nil {
		return out
	}
	for _, e := range r.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Add appends an error for checks that cannot be expressed as tags.
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Error lets a Result travel as an error.
func (r *Result) Error() string { return r.All() }

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		mustRegister(v, "httpurl", func(fl validator.FieldLevel) bool {
			return IsValidHTTPURL(fl.Field().String())
		})
		mustRegister(v, "ownertype", func(fl validator.FieldLevel) bool {
			return models.OwnerType(fl.Field().String()).IsValid()
		})
		mustRegister(v, "deliverytype", func(fl validator.FieldLevel) bool {
			switch models.DeliveryType(fl.Field().String()) {
			case models.DeliveryImmediate, models.DeliveryScheduled:
				return true
			}
			return false
		})
		mustRegister(v, "faculty", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == models.AllTargets || models.IsFaculty(s)
		})
		mustRegister(v, "grade", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == models.AllTargets || models.IsGrade(s)
		})
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("inputval: register %s: %v", tag, err))
	}
}

// Validate runs the struct's tag rules. Passing a non-struct reports a
// single error rather than panicking.
func Validate(s any) *Result {
	res := &Result{}
	err := engine().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Add("", err.Error())
		return res
	}
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		res.Add(jsonName(t, fe.StructField()), message(fe))
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	if i := strings.IndexByte(label, '['); i >= 0 {
		label = label[:i]
	}
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required."
	case "required_if":
		return label + " is required."
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s may have at most %s entries.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "httpurl", "url":
		return label + " must be a valid http(s) URL."
	case "ownertype":
		return label + " must be companies or media-group."
	case "deliverytype":
		return label + " must be immediate or scheduled."
	case "faculty", "grade":
		return fmt.Sprintf("%s contains an unknown value %q.", label, fmt.Sprint(fe.Value()))
	}
	return label + " is invalid."
}

// jsonName maps a Go field name (possibly indexed, "Links[2]") to the json
// name declared on the struct.
func jsonName(t reflect.Type, field string) string {
	base := field
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = base[:i]
	}
	if t != nil && t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(base); ok {
			if tag := strings.Split(sf.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
				return tag
			}
		}
	}
	return strings.ToLower(base[:1]) + base[1:]
}

// IsValidEmail reports whether s is a bare address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return urlutil.IsValidAbsHTTPURL(s)
}

// ValidationError carries a failed Result out of a store call. Err, when
// set, names a specific sentinel cause (for example a missing upload) so
// callers can still match it with errors.Is.
type ValidationError struct {
	Result *Result
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Result.HasErrors() {
		return "validation failed: " + e.Result.All()
	}
	if e.Err != nil {
		return "validation failed: " + e.Err.Error()
	}
	return "validation failed"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Fail wraps a failed result, or returns nil when r has no errors.
func Fail(r *Result) error {
	if !r.HasErrors() {
		return nil
	}
	return &ValidationError{Result: r}
}
