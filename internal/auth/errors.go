package auth

import validation "github.com/go-ozzo/ozzo-validation/v4"

func validationField(name string, err error) error {
	return validation.Errors{name: err}
}
