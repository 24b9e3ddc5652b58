// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("this email address is already registered")
	ErrMissingCredentials = errors.New("sign in response carried no token headers")
)

// StatusError is returned when the backend answers with a non 2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: failed to get a successful response. %v: %v", e.Op, e.StatusCode, e.Status)
}

func HasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized)
}

func IsUnprocessable(err error) bool {
	return HasStatus(err, http.StatusUnprocessableEntity)
}
