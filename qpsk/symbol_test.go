package qpsk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Symbol_SignDecode(t *testing.T) {
	assert.False(t, Symbol00.ISign())
	assert.False(t, Symbol00.QSign())

	assert.False(t, Symbol01.ISign())
	assert.True(t, Symbol01.QSign())

	assert.True(t, Symbol10.ISign())
	assert.False(t, Symbol10.QSign())

	assert.True(t, Symbol11.ISign())
	assert.True(t, Symbol11.QSign())
}

func Test_Symbol_AlignmentSequence(t *testing.T) {
	assert.Equal(t, [2]Symbol{Symbol10, Symbol01}, alignmentSequence)
}
