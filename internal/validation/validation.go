// Package validation holds the account field rules and the request
// validator installed on Echo.
package validation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is a user-facing validation failure.
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func fail(msg string) error { return &Error{Msg: msg} }

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobileRe   = regexp.MustCompile(`^9[0-9]{9}$`)
	nonDigitRe = regexp.MustCompile(`\D`)
	loginStrip = regexp.MustCompile(`[\s\-()]`)
)

var disposableDomains = map[string]bool{
	"10minutemail.com": true, "guerrillamail.com": true, "tempmail.org": true, "mailinator.com": true,
	"yopmail.com": true, "throwaway.email": true, "temp-mail.org": true, "sharklasers.com": true,
	"getairmail.com": true, "mailnesia.com": true, "mintemail.com": true, "spam4.me": true,
	"bccto.me": true, "chacuo.net": true, "dispostable.com": true, "fakeinbox.com": true,
}

// NormalizeMobile strips everything but digits.
func NormalizeMobile(s string) string { return nonDigitRe.ReplaceAllString(s, "") }

// NormalizeLogin strips spaces, dashes and parentheses so a formatted
// mobile number matches the stored digits.
func NormalizeLogin(s string) string { return loginStrip.ReplaceAllString(strings.TrimSpace(s), "") }

// Username checks length and charset.
func Username(s string) error {
	if len(s) < 3 {
		return fail("Username must be at least 3 characters long")
	}
	if !usernameRe.MatchString(s) {
		return fail("Username can only contain letters, numbers, and underscores")
	}
	return nil
}

// Email checks format and rejects throwaway domains.
func Email(s string) error {
	if !emailRe.MatchString(s) {
		return fail("Please enter a valid email address")
	}
	if disposableDomains[strings.ToLower(s[strings.LastIndex(s, "@")+1:])] {
		return fail("Disposable email addresses are not allowed")
	}
	return nil
}

// Mobile checks an already normalized number: 10 digits starting with 9.
func Mobile(s string) error {
	if !mobileRe.MatchString(s) {
		return fail("Please enter a valid 10-digit mobile number starting with 9")
	}
	return nil
}

// Signup is the signup request body.
type Signup struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
}

// Normalize trims fields, lowercases the email and strips the mobile.
func (s *Signup) Normalize() {
	s.Username = strings.TrimSpace(s.Username)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Name = strings.TrimSpace(s.Name)
	s.Mobile = NormalizeMobile(s.Mobile)
}

// ValidateSignup normalizes s and applies every field rule in order.
func ValidateSignup(s *Signup) error {
	s.Normalize()
	if s.Username == "" || s.Email == "" || s.Password == "" || s.Name == "" || s.Mobile == "" {
		return fail("All fields are required")
	}
	if err := Username(s.Username); err != nil {
		return err
	}
	if err := Email(s.Email); err != nil {
		return err
	}
	return Mobile(s.Mobile)
}

// EchoValidator adapts go-playground/validator to echo.Validator.
type EchoValidator struct{ v *validator.Validate }

func NewEchoValidator() *EchoValidator { return &EchoValidator{v: validator.New()} }

// Validate runs struct tag validation and reports the first failure as
// an *Error.
func (ev *EchoValidator) Validate(i interface{}) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fail(fieldMessage(verrs[0]))
	}
	return fail(err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte", "min":
		return field + " must be at least " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	}
	return field + " is invalid"
}
