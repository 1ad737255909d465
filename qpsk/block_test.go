package qpsk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Block_AppendAndWords(t *testing.T) {
	b := NewBlock(4, 2)

	assert.False(t, b.Full())
	assert.Equal(t, 0, b.Appended())

	b.AppendPacket([]byte{0x01, 0x02, 0x03, 0x04})
	assert.False(t, b.Full())
	assert.Equal(t, 1, b.Appended())

	b.AppendPacket([]byte{0x05, 0x06, 0x07, 0x08})
	require.True(t, b.Full())
	assert.Equal(t, 2, b.Appended())

	words := b.Words()
	require.Len(t, words, 2)
	assert.Equal(t, uint32(0x04030201), words[0])
	assert.Equal(t, uint32(0x08070605), words[1])

	b.Clear()
	assert.False(t, b.Full())
	assert.Equal(t, 0, b.Appended())
}

func Test_Block_AppendPacketPanicsWhenFull(t *testing.T) {
	b := NewBlock(2, 1)
	b.AppendPacket([]byte{0xAA, 0xBB})

	assert.Panics(t, func() {
		b.AppendPacket([]byte{0xCC, 0xDD})
	})
}

func Test_Block_AppendPacketPanicsOnSizeMismatch(t *testing.T) {
	b := NewBlock(4, 1)

	assert.Panics(t, func() {
		b.AppendPacket([]byte{0x01, 0x02})
	})
}
