package validation

import (
	"testing"

	dErrors "civreg/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	FirstName string `json:"first_name" validate:"required,notblank"`
	Gender    string `json:"gender" validate:"omitempty,oneof=male female other"`
	Consent   *bool  `json:"consent" validate:"required"`
}

func TestValidate(t *testing.T) {
	yes := true

	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, Validate(sample{FirstName: "Asha", Consent: &yes}))
	})

	t.Run("reports json field name", func(t *testing.T) {
		err := Validate(sample{Consent: &yes})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "first_name is required")
	})

	t.Run("blank string", func(t *testing.T) {
		err := Validate(sample{FirstName: "   ", Consent: &yes})
		assert.Contains(t, err.Error(), "first_name must not be blank")
	})

	t.Run("oneof", func(t *testing.T) {
		err := Validate(sample{FirstName: "A", Gender: "x", Consent: &yes})
		assert.Contains(t, err.Error(), "gender must be one of")
	})

	t.Run("missing pointer", func(t *testing.T) {
		assert.Equal(t, "consent is required", ErrorMessage(Struct(sample{FirstName: "A"})))
	})
}

func TestErrorMessage_NonValidatorError(t *testing.T) {
	assert.Equal(t, "invalid request body", ErrorMessage(assert.AnError))
}
