package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Run("SetVariable", func(t *testing.T) {
		t.Setenv("QP_TEST_KEY", "secret")
		assert.Equal(t, "api_key: secret", expandEnv("api_key: ${QP_TEST_KEY}"))
	})

	t.Run("DefaultWhenUnset", func(t *testing.T) {
		assert.Equal(t, "model: gemini-2.0-flash", expandEnv("model: ${QP_TEST_UNSET:gemini-2.0-flash}"))
	})

	t.Run("EmptyDefault", func(t *testing.T) {
		assert.Equal(t, "api_key: ", expandEnv("api_key: ${QP_TEST_UNSET:}"))
	})

	t.Run("SetVariableBeatsDefault", func(t *testing.T) {
		t.Setenv("QP_TEST_KEY", "real")
		assert.Equal(t, "v: real", expandEnv("v: ${QP_TEST_KEY:fallback}"))
	})

	t.Run("UnsetWithoutDefaultKept", func(t *testing.T) {
		// 原样保留，便于发现未定义的变量
		assert.Equal(t, "v: ${QP_TEST_UNSET}", expandEnv("v: ${QP_TEST_UNSET}"))
	})
}
