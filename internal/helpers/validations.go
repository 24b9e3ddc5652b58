// SPDX-License-Identifier: AGPL-3.0-only
package helpers

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength   = 8
	MaxSelfIntroduction = 160
)

// ValidationError collects the fields that blocked a submission, keyed by
// form field name.
type ValidationError struct {
	Required []string
	Invalid  []string
	Mismatch []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Required) > 0 {
		parts = append(parts, "required: "+strings.Join(e.Required, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ", "))
	}
	if len(e.Mismatch) > 0 {
		parts = append(parts, "mismatch: "+strings.Join(e.Mismatch, ", "))
	}
	return fmt.Sprintf("validation failed (%s)", strings.Join(parts, "; "))
}

func (e *ValidationError) empty() bool {
	return len(e.Required) == 0 && len(e.Invalid) == 0 && len(e.Mismatch) == 0
}

func (e *ValidationError) orNil() error {
	if e.empty() {
		return nil
	}
	sort.Strings(e.Required)
	sort.Strings(e.Invalid)
	sort.Strings(e.Mismatch)
	return e
}

func IsEmpty(v string) bool {
	return strings.TrimSpace(v) == ""
}

// IsValidPassword requires at least MinPasswordLength characters with at
// least one letter and one digit.
func IsValidPassword(p string) bool {
	if utf8.RuneCountInString(p) < MinPasswordLength {
		return false
	}
	var hasLetter, hasNumber bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}

func IsValidSelfIntro(s string) bool {
	return utf8.RuneCountInString(s) <= MaxSelfIntroduction
}

func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// RequireFields reports every empty field in fields.
func RequireFields(fields map[string]string) error {
	v := &ValidationError{}
	for name, value := range fields {
		if IsEmpty(value) {
			v.Required = append(v.Required, name)
		}
	}
	return v.orNil()
}

func ValidateRegistration(username, email, password, confirm string) error {
	v := &ValidationError{}
	for name, value := range map[string]string{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": confirm,
	} {
		if IsEmpty(value) {
			v.Required = append(v.Required, name)
		}
	}
	if !IsEmpty(email) && !IsValidEmail(email) {
		v.Invalid = append(v.Invalid, "email")
	}
	if !IsEmpty(password) && !IsValidPassword(password) {
		v.Invalid = append(v.Invalid, "password")
	}
	if password != confirm {
		v.Mismatch = append(v.Mismatch, "password", "confirm_password")
	}
	return v.orNil()
}

func ValidateProfile(username, selfIntro string) error {
	v := &ValidationError{}
	if IsEmpty(username) {
		v.Required = append(v.Required, "username")
	}
	if !IsValidSelfIntro(selfIntro) {
		v.Invalid = append(v.Invalid, "self_introduction")
	}
	return v.orNil()
}
