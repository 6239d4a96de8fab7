package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCarveJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw := `The note follows. {"plan": "use {braces} and \"quotes\" freely"} Trailing prose.`

	carved, ok := carveJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"plan": "use {braces} and \"quotes\" freely"}`, carved)
}

func TestCarveJSONArrays(t *testing.T) {
	raw := `[{"key": "plan"}, {"key": "assessment"}] and some commentary`

	carved, ok := carveJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, `[{"key": "plan"}, {"key": "assessment"}]`, carved)
}

func TestCarveJSONUnbalanced(t *testing.T) {
	_, ok := carveJSON(`{"plan": "never closed"`)
	assert.False(t, ok)

	_, ok = carveJSON("no json here at all")
	assert.False(t, ok)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripFences(`{"a": 1}`))
}
