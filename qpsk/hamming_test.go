package qpsk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var hammingTestLengths = []int{1, 2, 3, 4, 10, 16, 50, 100, 256}

func Test_Hamming_NoErrorLeavesDataUnchanged(t *testing.T) {
	for _, length := range hammingTestLengths {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i*37 + length)
		}

		want := append([]byte(nil), data...)
		parity := HammingEncode(data)

		corrected := HammingDecode(data, parity)

		assert.False(t, corrected)
		assert.Equal(t, want, data)
	}
}

func Test_Hamming_SingleDataBitFlipIsCorrected(t *testing.T) {
	for _, length := range hammingTestLengths {
		length := length

		t.Run("", func(t *testing.T) {
			want := make([]byte, length)
			for i := range want {
				want[i] = byte(i*37 + length)
			}

			parity := HammingEncode(want)

			for bit := 0; bit < length*8; bit++ {
				bad := append([]byte(nil), want...)
				bad[bit/8] ^= 1 << uint(bit%8)

				require.NotEqual(t, want, bad)

				corrected := HammingDecode(bad, parity)

				assert.Truef(t, corrected, "bit %d of length %d", bit, length)
				assert.Equalf(t, want, bad, "bit %d of length %d", bit, length)
			}
		})
	}
}

func Test_Hamming_SingleParityBitFlipLeavesDataUnchanged(t *testing.T) {
	for _, length := range hammingTestLengths {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i*37 + length)
		}

		want := append([]byte(nil), data...)
		parity := HammingEncode(data)

		for bit := 0; bit < 16; bit++ {
			badParity := parity ^ (1 << uint(bit))
			got := append([]byte(nil), data...)

			HammingDecode(got, badParity)

			assert.Equal(t, want, got)
		}
	}
}

func Test_Hamming_RandomSingleBitFlip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(t, "data")
		bit := rapid.IntRange(0, len(data)*8-1).Draw(t, "bit")

		want := append([]byte(nil), data...)
		parity := HammingEncode(want)

		bad := append([]byte(nil), want...)
		bad[bit/8] ^= 1 << uint(bit%8)

		corrected := HammingDecode(bad, parity)

		assert.True(t, corrected)
		assert.Equal(t, want, bad)
	})
}
