package gst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateFromGSTIN(t *testing.T) {
	assert.Equal(t, "Delhi", StateFromGSTIN("07AABCU9603R1ZX"))
	assert.Equal(t, "Maharashtra", StateFromGSTIN("27AAPFU0939F1ZV"))
	assert.Equal(t, "Karnataka", StateFromGSTIN("29AAACB2894G1ZL"))
}

func TestStateFromGSTIN_Invalid(t *testing.T) {
	assert.Empty(t, StateFromGSTIN(""))
	assert.Empty(t, StateFromGSTIN("0"))
	assert.Empty(t, StateFromGSTIN("99AAACB2894G1ZL"))
}
