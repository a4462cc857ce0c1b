package solve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompt(t *testing.T) {
	t.Run("DefaultWhenPathEmpty", func(t *testing.T) {
		prompt, err := LoadPrompt("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPrompt, prompt)
	})

	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("solve it briefly\n"), 0o600))

		prompt, err := LoadPrompt(path)
		require.NoError(t, err)
		assert.Equal(t, "solve it briefly", prompt)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadPrompt(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

		_, err := LoadPrompt(path)
		assert.Error(t, err)
	})
}
