package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should attach book and unit ids from context", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter("debug", "json", &buf)

		ctx := WithBook(context.Background(), "book-1", "unit-7")
		Info(ctx, "unit generated", "words", 1200)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "book-1", line["book_id"])
		assert.Equal(t, "unit-7", line["unit_id"])
		assert.Equal(t, float64(1200), line["words"])
	})

	t.Run("Should append error text on Error", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter("info", "json", &buf)

		Error(context.Background(), "stage failed", errors.New("boom"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "boom", line["error"])
		assert.Equal(t, "ERROR", line["level"])
	})

	t.Run("Should drop debug lines below configured level", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter("warn", "text", &buf)

		Debug(context.Background(), "hidden")
		assert.Empty(t, buf.String())
	})
}
