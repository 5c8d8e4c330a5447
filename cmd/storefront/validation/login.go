package validation

import "io"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = map[string]string{
	"email.required":    "The email field is required.",
	"email.email":       "The email field must be a valid email address.",
	"email.type":        "The email field must be a string.",
	"password.required": "The password field is required.",
	"password.type":     "The password field must be a string.",
}

// Login validates a login body.
func Login(body io.Reader) (*LoginRequest, error) {
	raw, err := readBody(body)
	if err != nil {
		return nil, err
	}

	errs := NewErrors()
	var req LoginRequest
	ok, err := decodeJSON(raw, &req, errs, loginMessages)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs
	}
	if err := collect(errs, req, loginMessages); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return &req, nil
}
