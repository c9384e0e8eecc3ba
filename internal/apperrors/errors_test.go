package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create plan: %w", NewValidation("plan_image", "too big"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)

	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "too big", v.For("plan_image"))
	assert.Equal(t, "", v.For("title"))
}

func TestValidationErrorOrNil(t *testing.T) {
	var empty ValidationError
	assert.NoError(t, empty.OrNil())

	var nilErr *ValidationError
	assert.NoError(t, nilErr.OrNil())

	v := &ValidationError{}
	v.Add("title", "required")
	v.Add("title", "second message is ignored by Fields")
	v.Add("category", "required")

	err := v.OrNil()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, map[string]string{"title": "required", "category": "required"}, v.Fields())
	assert.Contains(t, err.Error(), "title: required")
}
