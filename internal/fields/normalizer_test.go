package fields

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smam/backend/internal/domain"
)

var testDefs = []domain.CustomField{
	{Name: "topic", Label: "Topic", Type: domain.FieldTypeSelect, Options: []string{"A", "B", "C"}},
	{Name: "company", Label: "Company", Type: domain.FieldTypeText},
	{Name: "notes", Label: "Notes", Type: domain.FieldTypeTextarea},
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(testDefs)

	t.Run("select 下标映射为选项", func(t *testing.T) {
		out, err := n.Normalize(map[string]any{"topic": "1"})
		require.NoError(t, err)
		assert.Equal(t, domain.FieldValue{Label: "Topic", Value: "B"}, out["topic"])
	})

	t.Run("JSON 数字下标", func(t *testing.T) {
		out, err := n.Normalize(map[string]any{"topic": json.Number("2"), "company": "ACME"})
		require.NoError(t, err)
		assert.Equal(t, "C", out["topic"].Value)
		assert.Equal(t, "ACME", out["company"].Value)
	})

	t.Run("文本字段原样保留", func(t *testing.T) {
		out, err := n.Normalize(map[string]any{"company": "1"})
		require.NoError(t, err)
		assert.Equal(t, domain.FieldValue{Label: "Company", Value: "1"}, out["company"])
	})

	t.Run("空值和未定义字段被省略", func(t *testing.T) {
		out, err := n.Normalize(map[string]any{"company": "", "notes": nil, "unknown": "x"})
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("下标越界返回配置错误", func(t *testing.T) {
		_, err := n.Normalize(map[string]any{"topic": "3"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrFieldConfig))

		_, err = n.Normalize(map[string]any{"topic": "-1"})
		assert.True(t, errors.Is(err, domain.ErrFieldConfig))
	})

	t.Run("非数字下标返回配置错误", func(t *testing.T) {
		_, err := n.Normalize(map[string]any{"topic": "B"})
		assert.True(t, errors.Is(err, domain.ErrFieldConfig))
	})
}

func TestNormalizer_Ordered(t *testing.T) {
	n := NewNormalizer(testDefs)
	out, err := n.Normalize(map[string]any{"notes": "hi", "topic": "0", "company": "ACME"})
	require.NoError(t, err)

	ordered := n.Ordered(out)
	require.Len(t, ordered, 3)
	assert.Equal(t, "A", ordered[0].Value)
	assert.Equal(t, "ACME", ordered[1].Value)
	assert.Equal(t, "hi", ordered[2].Value)
}
