package descriptions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		desc := GetToolDescription(name)
		assert.NotEmpty(t, desc, name)
		assert.True(t, strings.Contains(desc, "**When to use:**"), name)
	}
	assert.Equal(t, "Tool description not available", GetToolDescription("pdf_read_file"))
}

func TestGetAllToolNames_Sorted(t *testing.T) {
	names := GetAllToolNames()
	assert.Len(t, names, 12)
	assert.IsNonDecreasing(t, names)
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "biodata_"), name)
	}
}
