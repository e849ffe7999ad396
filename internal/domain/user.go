package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the client-side floor; the backend stays the authority.
const MinPasswordLength = 6

// User is the identity attached to a bearer token.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Credentials is the body of the login and register calls.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateCredentials checks the credentials shape and returns a readable error.
func ValidateCredentials(c Credentials) error {
	err := Validator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return "Email is required"
		}
		return "Email must be a valid address"
	case "Password":
		if fe.Tag() == "required" {
			return "Password is required"
		}
		return fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
