package session

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

type RegisterUserMessage struct {
	FirstName    string `form:"nombre" json:"nombre"`
	PaternalName string `form:"apellido_paterno" json:"apellidoPaterno"`
	MaternalName string `form:"apellido_materno" json:"apellidoMaterno"`
	Email        string `form:"email" json:"email"`
	Phone        string `form:"telefono" json:"telefono"`
	Password     string `form:"password" json:"password"`
}

func (e RegisterUserMessage) Type() string { return "session.user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(
			&e.FirstName,
			validation.Required,
			validation.Length(1, 100),
		),
		validation.Field(
			&e.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&e.Phone,
			validation.By(ValidPhoneNumber),
		),
		validation.Field(
			&e.Password,
			validation.Required,
			validation.Length(6, 100),
		),
	)
}

// ValidPhoneNumber accepts empty values and otherwise requires a parseable,
// valid phone number. Numbers without a country prefix are treated as MX.
func ValidPhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "MX")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}

	return nil
}

type RegisterUserHandler struct {
	gateway Gateway
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	_, err := h.gateway.Register(ctx, Registration{
		FirstName:    event.FirstName,
		PaternalName: event.PaternalName,
		MaternalName: event.MaternalName,
		Email:        event.Email,
		Phone:        event.Phone,
		Password:     event.Password,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration failed")
	}

	return nil
}
