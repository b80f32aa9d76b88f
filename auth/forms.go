package auth

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/nyaruka/phonenumbers"
)

// phoneRegion is the numbering plan signup phone numbers must belong to
const phoneRegion = "ID"

var phonePattern = regexp.MustCompile(`^62[0-9]{9,13}$`)

// FieldErrors maps a form field to its message. It unwraps to errors.ErrValidation.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(parts, "; ")
}

func (e FieldErrors) Unwrap() error {
	return errors.ErrValidation
}

type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (f LoginForm) Validate() error {
	return fieldErrors(validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required.Error("Email or username or phone number is required")),
		validation.Field(&f.Password, validation.Required.Error("Password is required")),
	))
}

func (f LoginForm) Credentials() identity.Credentials {
	return identity.Credentials{Username: strings.TrimSpace(f.Username), Password: f.Password}
}

type SignupForm struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f SignupForm) Validate() error {
	const (
		nameMsg     = "Full name must be at least 2 characters"
		usernameMsg = "Username must be at least 3 characters"
		phoneMsg    = "Invalid format (must start with 62, e.g., 62813...)"
		emailMsg    = "Invalid email format"
		passwordMsg = "Password must be at least 6 characters"
	)
	return fieldErrors(validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required.Error(nameMsg), validation.RuneLength(2, 0).Error(nameMsg)),
		validation.Field(&f.Username, validation.Required.Error(usernameMsg), validation.RuneLength(3, 0).Error(usernameMsg)),
		validation.Field(&f.Phone,
			validation.Required.Error(phoneMsg),
			validation.Match(phonePattern).Error(phoneMsg),
			validation.By(validPhoneNumber(phoneMsg)),
		),
		validation.Field(&f.Email, validation.Required.Error(emailMsg), is.Email.Error(emailMsg)),
		validation.Field(&f.Password, validation.Required.Error(passwordMsg), validation.RuneLength(6, 0).Error(passwordMsg)),
	))
}

func (f SignupForm) Registration() identity.Registration {
	return identity.Registration{
		Name:     strings.TrimSpace(f.Name),
		Username: strings.TrimSpace(f.Username),
		Phone:    f.Phone,
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
}

type ForgotPasswordForm struct {
	Email string `json:"email"`
}

func (f ForgotPasswordForm) Validate() error {
	const msg = "Please enter a valid email address"
	return fieldErrors(validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required.Error(msg), is.Email.Error(msg)),
	))
}

// validPhoneNumber checks the number against the Indonesian numbering plan
func validPhoneNumber(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		num, err := phonenumbers.Parse("+"+s, phoneRegion)
		if err != nil || !phonenumbers.IsValidNumberForRegion(num, phoneRegion) {
			return fmt.Errorf("%s", msg)
		}
		return nil
	}
}

func fieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
