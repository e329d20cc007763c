package user

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const minNameLength = 3

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func validateNew(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	verr := &ValidationError{}
	if name == "" {
		verr.add("name", "Name is required")
	}
	switch {
	case email == "":
		verr.add("email", "Email is required")
	case !validEmail(email):
		verr.add("email", "Email is not valid")
	}
	return name, email, verr.orNil()
}

func validatePatchName(name string) error {
	if utf8.RuneCountInString(name) < minNameLength {
		return &ValidationError{Fields: map[string]string{"name": "Name must be at least 3 characters long"}}
	}
	return nil
}

func validatePatchEmail(email string) error {
	if !validEmail(email) {
		return &ValidationError{Fields: map[string]string{"email": "Invalid email format"}}
	}
	return nil
}

// complete reports whether a persisted user carries every required field.
func complete(id, name, email string) bool {
	return strings.TrimSpace(id) != "" &&
		strings.TrimSpace(name) != "" &&
		strings.TrimSpace(email) != ""
}
