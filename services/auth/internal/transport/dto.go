package transport

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
	otpPattern   = regexp.MustCompile(`^\d{4,10}$`)
)

// SignInRequest signs in with either a password or a phone code.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Otp      string `json:"otp"`
}

func (r SignInRequest) WithOtp() bool { return r.Otp != "" }

func (r SignInRequest) Validate() error {
	if r.WithOtp() {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Phone, validation.Required, validation.Match(phonePattern)),
			validation.Field(&r.Otp, validation.Required, validation.Match(otpPattern)),
		)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	AdminKey string `json:"adminKey"`
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		// bcrypt ignores input past 72 bytes
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Phone, validation.Match(phonePattern)),
	)
}

type TokenRequest struct {
	Token string `json:"token" query:"token" form:"token"`
}

func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

type OtpSendRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (r OtpSendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.Match(phonePattern)),
		validation.Field(&r.Email, is.Email),
	)
}

type OtpVerifyRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

func (r OtpVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.Match(phonePattern)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Otp, validation.Required, validation.Match(otpPattern)),
	)
}

type MagicLinkRequest struct {
	Email string `json:"email" query:"email"`
}

func (r MagicLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type MessageResponse struct {
	Message string `json:"message"`
}
