package qpsk

import (
	stdcrc32 "hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_Crc32_MatchesStandardLibraryIEEE(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 4096).Draw(t, "data")

		got := Crc32Seeded(0, data)
		want := stdcrc32.ChecksumIEEE(data)

		assert.Equal(t, want, got)
	})
}

func Test_Crc32_SeedMatchesUpdate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint32().Draw(t, "seed")
		data := rapid.SliceOfN(rapid.Byte(), 0, 1024).Draw(t, "data")

		got := Crc32Seeded(seed, data)
		want := stdcrc32.Update(seed, stdcrc32.IEEETable, data)

		assert.Equal(t, want, got)
	})
}

func Test_Crc32_ProcessAccumulatesAcrossCalls(t *testing.T) {
	c := NewCrc32()

	c.Process([]byte("hello, "))
	c.Process([]byte("world!"))

	assert.Equal(t, stdcrc32.ChecksumIEEE([]byte("hello, world!")), c.Value())
}

func Test_Crc32_OneMillionRandomBytes(t *testing.T) {
	data := make([]byte, 1_000_000)
	for i := range data {
		data[i] = byte(i * 2654435761 >> 8)
	}

	assert.Equal(t, stdcrc32.ChecksumIEEE(data), Crc32Seeded(0, data))
}
