package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Public  string         `json:"public"`
	Secret  string         `json:"secret" sensitive:"true"`
	Empty   string         `json:"empty,omitempty" sensitive:"true"`
	Skipped string         `json:"-"`
	Nested  *sampleNested  `json:"nested,omitempty"`
	Items   []sampleNested `json:"items"`
	Count   int            `json:"count,omitempty"`
}

type sampleNested struct {
	Value  string `json:"value"`
	Secret string `json:"secret" sensitive:"true"`
}

func TestRedactMasksSensitiveFields(t *testing.T) {
	t.Parallel()

	cfg := &sampleConfig{
		Public:  "visible",
		Secret:  "top-secret",
		Skipped: "hidden",
		Nested:  &sampleNested{Value: "nested", Secret: "nested-secret"},
		Items:   []sampleNested{{Value: "first", Secret: "item-secret"}, {Value: "second"}},
	}

	result, err := Redact(cfg)
	require.NoError(t, err)

	assert.Equal(t, "visible", result["public"])
	assert.Equal(t, RedactedValue, result["secret"])
	assert.NotContains(t, result, "empty")
	assert.NotContains(t, result, "-")
	assert.NotContains(t, result, "count")

	nested := result["nested"].(map[string]interface{})
	assert.Equal(t, "nested", nested["value"])
	assert.Equal(t, RedactedValue, nested["secret"])

	items := result["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, RedactedValue, items[0].(map[string]interface{})["secret"])
	assert.NotContains(t, items[1].(map[string]interface{}), "secret")
}

func TestRedactRejectsNonStruct(t *testing.T) {
	t.Parallel()

	_, err := Redact("plain")
	require.ErrorIs(t, err, errRedactNotStruct)

	_, err = Redact(nil)
	require.ErrorIs(t, err, errRedactNotStruct)

	var cfg *sampleConfig

	_, err = Redact(cfg)
	require.ErrorIs(t, err, errRedactNotStruct)
}
