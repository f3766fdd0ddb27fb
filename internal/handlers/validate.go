package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation limits for annonce, category and account fields.
const (
	maxTitleLen       = 64
	maxDescriptionLen = 256
	maxAddressLen     = 64
	maxMailLen        = 64
	maxLabelLen       = 50
	minUsernameLen    = 3
	maxUsernameLen    = 50
	minPasswordLen    = 8
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// violations accumulates field errors in input order.
type violations []string

func (v *violations) add(field, format string, args ...any) {
	*v = append(*v, field+": "+fmt.Sprintf(format, args...))
}

// err returns nil when nothing was recorded.
func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &validationError{details: v}
}

func (v *violations) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case min > 0 && strings.TrimSpace(value) == "":
		v.add(field, "must not be blank")
	case n < min || n > max:
		if min > 0 {
			v.add(field, "must be between %d and %d characters", min, max)
		} else {
			v.add(field, "must be at most %d characters", max)
		}
	}
}

func (v *violations) email(field, value string, required bool) {
	if value == "" {
		if required {
			v.add(field, "must not be blank")
		}
		return
	}
	if utf8.RuneCountInString(value) > maxMailLen {
		v.add(field, "must be at most %d characters", maxMailLen)
		return
	}
	if !emailRegex.MatchString(value) {
		v.add(field, "must be a valid email address")
	}
}

func (v *violations) uuidRef(field, value string) *uuid.UUID {
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		v.add(field, "must be a valid UUID")
		return nil
	}
	return &id
}

// annonceInput is the shared shape of create and update bodies.
type annonceInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Mail        string `json:"mail"`
	CategoryID  string `json:"categoryId"`
}

// validate checks every field and resolves the category reference.
func (in *annonceInput) validate(v *violations) *uuid.UUID {
	v.length("title", in.Title, 1, maxTitleLen)
	v.length("description", in.Description, 0, maxDescriptionLen)
	v.length("address", in.Address, 0, maxAddressLen)
	v.email("mail", in.Mail, false)
	return v.uuidRef("categoryId", in.CategoryID)
}

// patchInput leaves absent fields nil.
type patchInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Mail        *string `json:"mail"`
	CategoryID  *string `json:"categoryId"`
	Version     *int64  `json:"version"`
}

func (in *patchInput) validate(v *violations) *uuid.UUID {
	if in.Title != nil {
		v.length("title", *in.Title, 1, maxTitleLen)
	}
	if in.Description != nil {
		v.length("description", *in.Description, 0, maxDescriptionLen)
	}
	if in.Address != nil {
		v.length("address", *in.Address, 0, maxAddressLen)
	}
	if in.Mail != nil {
		v.email("mail", *in.Mail, false)
	}
	if in.Version == nil {
		v.add("version", "is required")
	}
	if in.CategoryID != nil {
		return v.uuidRef("categoryId", *in.CategoryID)
	}
	return nil
}

// validateRegistration checks account creation input.
func validateRegistration(username, email, password string) error {
	var v violations
	v.length("username", username, minUsernameLen, maxUsernameLen)
	v.email("email", email, true)
	switch {
	case utf8.RuneCountInString(password) < minPasswordLen:
		v.add("password", "must be at least %d characters", minPasswordLen)
	case !strings.ContainsFunc(password, unicode.IsUpper) || !strings.ContainsFunc(password, unicode.IsDigit):
		v.add("password", "must contain at least one upper-case letter and one digit")
	}
	return v.err()
}

// validateLabel checks a category label.
func validateLabel(label string) error {
	var v violations
	v.length("label", label, 1, maxLabelLen)
	return v.err()
}
