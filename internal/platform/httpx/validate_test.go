package httpx

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type sample struct {
	Email string `validate:"required,email"`
	Lines []struct {
		Quantity int `validate:"gt=0"`
	} `validate:"required,min=1,dive"`
}

func TestValidateCollectsFields(t *testing.T) {
	v := validator.New()
	in := sample{Email: "nope", Lines: []struct {
		Quantity int `validate:"gt=0"`
	}{{Quantity: 0}}}

	err := Validate(v, in)
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "must be a valid email address", verr.Fields["email"])
	require.Equal(t, "must be greater than 0", verr.Fields["lines[0].quantity"])
}

func TestValidatePasses(t *testing.T) {
	v := validator.New()
	in := sample{Email: "a@b.co", Lines: []struct {
		Quantity int `validate:"gt=0"`
	}{{Quantity: 2}}}
	require.NoError(t, Validate(v, in))
}
