package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-book-ai-api/internal/config"
)

type recordingLimiter struct {
	keys   []string
	limits []int
}

func (r *recordingLimiter) Wait(_ context.Context, key string, limit int, window time.Duration) error {
	r.keys = append(r.keys, key)
	r.limits = append(r.limits, limit)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "openai",
		Providers: map[string]config.ProviderConfig{
			"openai":   {APIKey: "k", BaseURL: "http://localhost:1", Model: "gpt-4o", RequestsPerMinute: 30},
			"deepseek": {APIKey: "k", BaseURL: "http://localhost:2", Model: "deepseek-chat"},
		},
	}}
}

func TestProviderThrottle(t *testing.T) {
	t.Run("Should limit the default provider by its quota", func(t *testing.T) {
		lim := &recordingLimiter{}
		require.NoError(t, NewProviderThrottle(testConfig(), lim).Wait(context.Background(), ""))
		assert.Equal(t, []string{"llm:rpm:openai"}, lim.keys)
		assert.Equal(t, []int{30}, lim.limits)
	})

	t.Run("Should pass through providers without a quota", func(t *testing.T) {
		lim := &recordingLimiter{}
		th := NewProviderThrottle(testConfig(), lim)
		require.NoError(t, th.Wait(context.Background(), "deepseek"))
		require.NoError(t, th.Wait(context.Background(), "missing"))
		assert.Empty(t, lim.keys)
	})
}

func TestEinoFactory(t *testing.T) {
	t.Run("Should reuse the model built for a provider", func(t *testing.T) {
		f := NewEinoFactory(testConfig())
		a, err := f.Get(context.Background(), "")
		require.NoError(t, err)
		b, err := f.Get(context.Background(), "openai")
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("Should fail for unknown providers", func(t *testing.T) {
		_, err := NewEinoFactory(testConfig()).Get(context.Background(), "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})
}
