package qpsk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_DelayLine_TapZeroIsMostRecent(t *testing.T) {
	d := NewDelayLine[int](4, 0)

	for i := 1; i <= 4; i++ {
		d.Process(i)
	}

	assert.Equal(t, 4, d.Tap(0))
	assert.Equal(t, 3, d.Tap(1))
	assert.Equal(t, 2, d.Tap(2))
	assert.Equal(t, 1, d.Tap(3))
}

func Test_DelayLine_ProcessReturnsEvictedSample(t *testing.T) {
	d := NewDelayLine[int](3, -1)

	assert.Equal(t, -1, d.Process(1))
	assert.Equal(t, -1, d.Process(2))
	assert.Equal(t, -1, d.Process(3))
	assert.Equal(t, 1, d.Process(4))
	assert.Equal(t, 2, d.Process(5))
}

func Test_DelayLine_MatchesNaiveHistory(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(1, 16).Draw(t, "depth")
		d := NewDelayLine[int](depth, 0)

		var history []int
		for i := 0; i < depth; i++ {
			history = append(history, 0)
		}

		values := rapid.SliceOfN(rapid.IntRange(-100, 100), 0, 200).Draw(t, "values")
		for _, v := range values {
			d.Process(v)
			history = append(history, v)
		}

		for k := 0; k < depth; k++ {
			want := history[len(history)-1-k]
			assert.Equal(t, want, d.Tap(k))
		}
	})
}
