package auth

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-portal-session/users"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) Validate() error {
	return validateStruct(r)
}

// SignupRequest registers a new CLIENT account.
type SignupRequest struct {
	FullName    string  `json:"fullName" validate:"required,max=120"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Industry    *string `json:"industry,omitempty" validate:"omitempty,max=120"`
}

func (r SignupRequest) Validate() error {
	err := validateStruct(r)
	if pwErr := users.ValidatePasswordStrength(r.Password); r.Password != "" && pwErr != nil {
		ve, ok := err.(*ValidationError)
		if !ok {
			ve = &ValidationError{Fields: map[string]string{}}
		}
		ve.Fields["password"] = pwErr.Error()
		return ve
	}
	return err
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (r ResetPasswordRequest) Validate() error {
	err := validateStruct(r)
	if pwErr := users.ValidatePasswordStrength(r.NewPassword); r.NewPassword != "" && pwErr != nil {
		ve, ok := err.(*ValidationError)
		if !ok {
			ve = &ValidationError{Fields: map[string]string{}}
		}
		ve.Fields["newPassword"] = pwErr.Error()
		return ve
	}
	return err
}

// ValidateEmail checks a bare email argument.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return &ValidationError{Fields: map[string]string{"email": "must be a valid email address"}}
	}
	return nil
}

// ValidationError lists the request fields that failed validation.
// It matches ErrInvalidRequest.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrInvalidRequest.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Fields: map[string]string{"request": err.Error()}}
	}
	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = describe(fe)
	}
	return ve
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}
