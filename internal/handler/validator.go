package handler

import "github.com/go-playground/validator/v10"

// RequestValidator plugs go-playground/validator into echo.  Handlers
// call c.Validate(&req) after binding and map the error to 400.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
