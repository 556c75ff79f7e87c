package http

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxNameLen     = 100
	maxEmailLen    = 254
)

func validateEmail(email string) *httpx.APIError {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > maxEmailLen {
		return invalidField("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalidField("email is not a valid address")
	}
	return nil
}

func validatePassword(field, pw string) *httpx.APIError {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen || n > maxPasswordLen {
		return invalidField(field + " must be between 8 and 128 characters")
	}
	return nil
}

func validateName(field, name string) *httpx.APIError {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return invalidField(field + " is required and at most 100 characters")
	}
	return nil
}

// firstInvalid returns the first non-nil error.
func firstInvalid(errs ...*httpx.APIError) *httpx.APIError {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
