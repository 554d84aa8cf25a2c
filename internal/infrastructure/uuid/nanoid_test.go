package uuid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNanoIDGenerator(t *testing.T) {
	gen := NewNanoIDGenerator(21, "ps_")
	a, err := gen.Generate()
	require.NoError(t, err)
	b, err := gen.Generate()
	require.NoError(t, err)

	assert.Len(t, a, 24)
	assert.True(t, strings.HasPrefix(a, "ps_"))
	assert.NotEqual(t, a, b)
	for _, r := range strings.TrimPrefix(a, "ps_") {
		assert.Contains(t, SessionAlphabet, string(r))
	}
	assert.Panics(t, func() { NewNanoIDGenerator(0, "ps_") })
}
