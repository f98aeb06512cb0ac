package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 59.97, Round2(3*19.99))
	assert.Equal(t, 0.1, Round2(0.1))
	assert.Equal(t, 1234.57, Round2(1234.567))
	assert.Equal(t, 0.0, Round2(0))
}

func TestValidateInputReportsFields(t *testing.T) {
	type input struct {
		Name        string `json:"name" validate:"required"`
		Probability int    `json:"probability" validate:"gte=0,lte=100"`
	}

	fields := ValidateInput(input{Name: "", Probability: 101})
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "probability")

	assert.Nil(t, ValidateInput(input{Name: "ok", Probability: 50}))
}
