package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "1000.00", FormatMinor(100000))
	assert.Equal(t, "333.34", FormatMinor(33334))
	assert.Equal(t, "0.05", FormatMinor(5))
	assert.Equal(t, "-500.00", FormatMinor(-50000))
	assert.Equal(t, "0.00", FormatMinor(0))
}

func TestParseMajor(t *testing.T) {
	v, ok := ParseMajor("1250.50")
	assert.True(t, ok)
	assert.Equal(t, int64(125050), v)

	v, ok = ParseMajor("7")
	assert.True(t, ok)
	assert.Equal(t, int64(700), v)

	_, ok = ParseMajor("0.001")
	assert.False(t, ok)
	_, ok = ParseMajor("ten")
	assert.False(t, ok)
}
