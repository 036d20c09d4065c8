package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct{}

func (codedErr) Error() string { return "unit generation failed: empty" }
func (codedErr) AppCode() ErrorCode { return CodeGenerationFailed }

func TestAppError(t *testing.T) {
	t.Run("Should format code message and cause", func(t *testing.T) {
		err := Wrap(stderrors.New("conn refused"), CodeDatabaseError, "load unit")
		assert.Equal(t, "[5001] load unit: conn refused", err.Error())
		assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	})

	t.Run("Should map not found codes to 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, New(CodeUnitNotFound, "unit not found").HTTPStatus)
		assert.Equal(t, http.StatusNotFound, New(CodeBookNotFound, "book not found").HTTPStatus)
	})

	t.Run("Should find AppError through wrapping", func(t *testing.T) {
		inner := New(CodeLockBusy, "busy")
		wrapped := fmt.Errorf("merge: %w", inner)
		assert.True(t, IsAppError(wrapped))
		assert.True(t, HasCode(wrapped, CodeLockBusy))
		assert.Same(t, inner, AsAppError(wrapped))
	})

	t.Run("Should take code from Coder errors", func(t *testing.T) {
		appErr := AsAppError(codedErr{})
		require.NotNil(t, appErr)
		assert.Equal(t, CodeGenerationFailed, appErr.Code)
		assert.Equal(t, "unit generation failed: empty", appErr.Message)
	})

	t.Run("Should fall back to unknown code", func(t *testing.T) {
		appErr := AsAppError(stderrors.New("x"))
		assert.Equal(t, CodeUnknown, appErr.Code)
		assert.Nil(t, AsAppError(nil))
	})
}
