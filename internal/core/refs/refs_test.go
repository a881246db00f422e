package refs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
)

func TestNew(t *testing.T) {
	refID := id.New()

	r, err := New(KindOrder, refID)
	require.NoError(t, err)
	assert.Equal(t, KindOrder, r.Kind)
	assert.Equal(t, refID, r.ID)
	assert.False(t, r.IsZero())
	assert.Equal(t, "order:"+refID.String(), r.String())
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		id   id.ID
	}{
		{"unknown kind", Kind("invoice"), id.New()},
		{"empty kind", Kind(""), id.New()},
		{"nil id", KindOrder, id.Nil()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.kind, tt.id)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestRef_Zero(t *testing.T) {
	var r Ref
	assert.True(t, r.IsZero())
	assert.Empty(t, r.String())
}
