package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// BirthDateLayout is the layout of birth dates posted by the registration form.
const BirthDateLayout = "2006-01-02"

const (
	minPasswordLength = 6
	maxPasswordLength = 64
	// bcrypt only accepts up to 72 bytes of input.
	maxPasswordBytes  = 72
	maxDescription    = 500
	maxProfileField   = 100
	maxNameLength     = 50
	maxMessageLength  = 2000
)

var (
	pseudoPattern = regexp.MustCompile(`^[\w.-]{3,16}$`)
	emailPattern  = regexp.MustCompile(`^[\w.+-]+@([\w-]+\.)+[\w-]{2,}$`)
)

func validatePseudo(pseudo string) error {
	if !pseudoPattern.MatchString(pseudo) {
		return invalid("pseudo", "your pseudo must be 3 to 16 letters, digits, dots (.), dashes (-) or underscores (_)")
	}
	return nil
}

func validateEmail(field, email string) error {
	if !emailPattern.MatchString(email) {
		return invalid(field, "the email address format is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if n := utf8.RuneCountInString(password); n < minPasswordLength || n > maxPasswordLength {
		return invalid("password", fmt.Sprintf("your password must be %d to %d characters long", minPasswordLength, maxPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return invalid("password", "your password uses too many accented or special characters, please shorten it")
	}
	return nil
}

// ParseBirthDate parses a YYYY-MM-DD birth date.
func ParseBirthDate(s string) (time.Time, error) {
	d, err := time.Parse(BirthDateLayout, s)
	if err != nil {
		return time.Time{}, invalid("birth date", "expected a date formatted as YYYY-MM-DD")
	}
	return d, nil
}

// OldEnough reports whether someone born on birthDate is at least
// minimumAge years old at now.
func OldEnough(birthDate, now time.Time, minimumAge int) bool {
	limit := now.AddDate(-minimumAge, 0, 0)
	return !birthDate.After(limit)
}

func validateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return invalid(field, fmt.Sprintf("must be at most %d characters long", max))
	}
	return nil
}

// validateName checks the name of a bamboo or a branch and returns it trimmed.
func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(field, "the name cannot be empty")
	}
	if err := validateLength(field, name, maxNameLength); err != nil {
		return "", err
	}
	return name, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("content", "a message cannot be empty")
	}
	if err := validateLength("content", content, maxMessageLength); err != nil {
		return "", err
	}
	return content, nil
}
