package qpsk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_Fifo_PushPopOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := 1 << rapid.IntRange(1, 8).Draw(t, "log2capacity")
		fifo := NewFifo[int](capacity)

		var pushed, popped []int

		ops := rapid.SliceOfN(rapid.IntRange(0, 1), 0, 500).Draw(t, "ops")
		next := 0

		for _, op := range ops {
			if op == 0 {
				v := next
				if fifo.Push(v) {
					pushed = append(pushed, v)
					next++
				}
			} else if v, ok := fifo.Pop(); ok {
				popped = append(popped, v)
			}
		}

		// Drain whatever remains so popped is a full prefix comparison.
		for {
			v, ok := fifo.Pop()
			if !ok {
				break
			}

			popped = append(popped, v)
		}

		assert.Equal(t, pushed, popped)
	})
}

func Test_Fifo_FullRejectsWithoutCorruption(t *testing.T) {
	fifo := NewFifo[int](4)

	for i := 0; i < 4; i++ {
		require.True(t, fifo.Push(i))
	}

	assert.False(t, fifo.Push(99))
	assert.Equal(t, 4, fifo.Available())
	assert.True(t, fifo.Full())

	v, ok := fifo.Pop()
	require.True(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, fifo.Push(4))
}

func Test_RingBuffer_OverwritesOldestOnFull(t *testing.T) {
	rb := NewRingBuffer[int](4)

	for i := 0; i < 6; i++ {
		rb.Push(i)
	}

	assert.Equal(t, 4, rb.Available())

	var got []int
	for {
		v, ok := rb.Pop()
		if !ok {
			break
		}

		got = append(got, v)
	}

	assert.Equal(t, []int{2, 3, 4, 5}, got)
}

func Test_Fifo_PushBuffer(t *testing.T) {
	fifo := NewFifo[int](4)

	assert.True(t, fifo.PushBuffer([]int{1, 2, 3}))
	assert.False(t, fifo.PushBuffer([]int{4, 5})) // only 1 slot left
	assert.Equal(t, 3, fifo.Available())
}
