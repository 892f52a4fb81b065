package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhone(t *testing.T) {
	for number, want := range map[string]bool{
		"+61 2 9999 0000":       true,
		"(02) 9999-0000":        true,
		"0299990000":            true,
		"12345":                 false,
		"+1 800 FLOWERS":        false,
		"123456789012345678901": false,
	} {
		assert.Equal(t, want, validPhone(number), number)
	}
}

func TestValidEmailAndURL(t *testing.T) {
	assert.True(t, validEmail("ann@example.com"))
	assert.False(t, validEmail("Ann <ann@example.com>"))
	assert.False(t, validEmail("ann"))

	assert.True(t, validURL("https://example.com/path"))
	assert.False(t, validURL("example.com"))
	assert.False(t, validURL("mailto:ann@example.com"))
}
