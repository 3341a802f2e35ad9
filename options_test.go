package claudepipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFileConfig(t *testing.T) {
	t.Parallel()

	fc := &FileConfig{
		Model:        "opus",
		AllowedTools: []string{"Read"},
		Env:          map[string]string{"FROM": "file"},
	}
	fc.Interceptors.Debug = true
	fc.Interceptors.Timeout = 3 * time.Second
	fc.Interceptors.MaxContextSize = 4096

	o := applyOptions([]Option{
		WithModel("haiku"),
		WithInterceptors(LoggingInterceptor(NopLogger())),
		WithFileConfig(fc),
		WithEnv(map[string]string{"LATER": "option"}),
	})

	assert.Equal(t, "opus", o.Model, "file values override earlier options")
	assert.Equal(t, []string{"Read"}, o.AllowedTools)
	assert.Equal(t, map[string]string{"FROM": "file", "LATER": "option"}, o.Env)
	assert.Equal(t, map[string]string{"FROM": "file"}, fc.Env, "file config is not mutated")
	assert.True(t, o.Interceptors.Debug)
	assert.Equal(t, 3*time.Second, o.Interceptors.Timeout)
	assert.Equal(t, 4096, o.Interceptors.MaxContextSize)
	assert.Len(t, o.Interceptors.Interceptors, 1)

	require.NotPanics(t, func() { applyOptions([]Option{WithFileConfig(nil)}) })
}

func TestWithInterceptorConfig_KeepsInterceptors(t *testing.T) {
	t.Parallel()

	o := applyOptions([]Option{
		WithInterceptors(RedactInterceptor()),
		WithInterceptorConfig(InterceptorConfig{Timeout: time.Second}),
		WithInterceptors(LoggingInterceptor(NopLogger())),
	})

	require.Len(t, o.Interceptors.Interceptors, 2)
	require.Equal(t, "redact", o.Interceptors.Interceptors[0].Name)
	require.Equal(t, time.Second, o.Interceptors.Timeout)
}

func TestWithExtraArgsAndBuffer(t *testing.T) {
	t.Parallel()

	v := "x"
	o := applyOptions([]Option{
		WithExtraArgs(map[string]*string{"debug-to-stderr": nil}),
		WithExtraArgs(map[string]*string{"betas": &v}),
		WithMaxBufferSize(2048),
	})

	require.Len(t, o.ExtraArgs, 2)
	require.Equal(t, 2048, *o.MaxBufferSize)
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() { NopLogger().Info("discarded") })
}

func TestModels(t *testing.T) {
	t.Parallel()

	m, ok := LookupModel("sonnet")
	require.True(t, ok)
	require.Equal(t, ModelCostTierMedium, m.CostTier)
	require.NotEmpty(t, Models())
	require.NotEmpty(t, ModelsByCostTier(ModelCostTierLow))
}
