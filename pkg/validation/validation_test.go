package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type coursePayload struct {
	Name        string `form:"name" validate:"required,notblank,slugged"`
	Description string `json:"description" validate:"required"`
	VideoURL    string `form:"videoUrl" validate:"omitempty,url"`
}

func TestStructValid(t *testing.T) {
	v := New()
	err := v.Struct(coursePayload{Name: "Intro", Description: "d"}, "invalid course payload")
	assert.NoError(t, err)
}

func TestStructCollectsFieldMessages(t *testing.T) {
	v := New()
	err := v.Struct(coursePayload{Name: "", VideoURL: "not a url"}, "invalid course payload")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid course payload", appErr.Message)
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "description")
	assert.Contains(t, appErr.Fields, "videoUrl")
	assert.Equal(t, "name is a required field", appErr.Fields["name"])
}

func TestStructRejectsUnsluggableName(t *testing.T) {
	v := New()
	err := v.Struct(coursePayload{Name: "!!!", Description: "d"}, "invalid course payload")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "name must contain at least one letter or digit", appErr.Fields["name"])
}

func TestStructRejectsBlankName(t *testing.T) {
	v := New()
	err := v.Struct(coursePayload{Name: "   ", Description: "d"}, "invalid course payload")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "name cannot be blank", appErr.Fields["name"])
}
