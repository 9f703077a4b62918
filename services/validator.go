package services

import (
	goerrors "errors"
	"fmt"
	"strings"

	"localchat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Limits bound what a session may write into the shared store.
type Limits struct {
	MaxNameLength    int
	MaxContentLength int
}

func DefaultLimits() Limits {
	return Limits{MaxNameLength: 32, MaxContentLength: 2000}
}

type LoginRequest struct {
	DisplayName string
	Color       string
}

// ValidateLogin trims the display name and checks both fields.
func (l Limits) ValidateLogin(req LoginRequest) (LoginRequest, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validate.Var(req.DisplayName, fmt.Sprintf("required,max=%d", l.MaxNameLength)); err != nil {
		return req, firstFailure(err, errors.ErrEmptyDisplayName, errors.ErrDisplayNameTooLong)
	}
	if err := l.ValidateColor(req.Color); err != nil {
		return req, err
	}
	return req, nil
}

func (l Limits) ValidateColor(color string) error {
	if err := validate.Var(color, "required,hexcolor"); err != nil {
		return errors.ErrInvalidColor
	}
	return nil
}

// ValidateText trims the message text and checks its length in runes.
func (l Limits) ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if err := validate.Var(text, fmt.Sprintf("required,max=%d", l.MaxContentLength)); err != nil {
		return text, firstFailure(err, errors.ErrEmptyText, errors.ErrContentTooLong)
	}
	return text, nil
}

// firstFailure maps the validator tag that failed to our sentinel errors.
func firstFailure(err error, onRequired, onMax error) error {
	var validationErrors validator.ValidationErrors
	if goerrors.As(err, &validationErrors) && len(validationErrors) > 0 && validationErrors[0].Tag() == "max" {
		return onMax
	}
	return onRequired
}
