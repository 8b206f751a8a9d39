package locale

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "fr"}, c.Languages())

	t.Run("精确匹配", func(t *testing.T) {
		b := c.Bundle("fr", true)
		assert.True(t, b.Labels)
		assert.Equal(t, "Envoyer", b.Translations["send"])
	})

	t.Run("地区变体匹配基础语言", func(t *testing.T) {
		b := c.Bundle("fr-CA", false)
		assert.False(t, b.Labels)
		assert.Equal(t, "Votre nom", b.Translations["form_name"])
	})

	t.Run("未知语言回退英文", func(t *testing.T) {
		b := c.Bundle("ja", true)
		assert.Equal(t, "Send", b.Translations["send"])
	})
}

func TestLoadFS_Errors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{}, "locales")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{
		"locales/en.yaml": {Data: []byte("send: [unclosed")},
	}, "locales")
	assert.Error(t, err)
}
