package qpsk

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packetTestCRCSeed = 420

func pushByte(p *Packet, b byte) {
	p.WriteSymbol(Symbol((b >> 6) & 3))
	p.WriteSymbol(Symbol((b >> 4) & 3))
	p.WriteSymbol(Symbol((b >> 2) & 3))
	p.WriteSymbol(Symbol(b & 3))
}

func pushPacket(p *Packet, payload []byte, seed uint32) {
	for _, b := range payload {
		pushByte(p, b)
	}

	crc := Crc32Seeded(seed, payload)

	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)
	for _, b := range crcBytes {
		pushByte(p, b)
	}

	combined := append(append([]byte(nil), payload...), crcBytes[:]...)
	parity := HammingEncode(combined)

	var parityBytes [2]byte
	binary.BigEndian.PutUint16(parityBytes[:], parity)
	for _, b := range parityBytes {
		pushByte(p, b)
	}
}

func Test_Packet_ValidWithNoErrors(t *testing.T) {
	for _, size := range []int{4, 8, 16, 32, 64, 100, 128, 252, 256, 260} {
		size := size

		t.Run("", func(t *testing.T) {
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte(i*31 + size)
			}

			p := NewPacket(size, packetTestCRCSeed)
			require.False(t, p.Full())

			pushPacket(p, payload, packetTestCRCSeed)

			require.True(t, p.Full())
			assert.True(t, p.Valid())
			assert.False(t, p.Corrected())
			assert.Equal(t, payload, p.Data())

			p.Reset()
			assert.False(t, p.Full())
		})
	}
}

func Test_Packet_UncorrectableErrorInvalidatesCRC(t *testing.T) {
	size := 64
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i*31 + size)
	}

	p := NewPacket(size, packetTestCRCSeed)

	// A Hamming-correctable packet always validates regardless of a
	// single flipped bit, so more than one bad bit (beyond single-error
	// correction) is needed to exercise a genuine CRC mismatch.
	crc := Crc32Seeded(packetTestCRCSeed, payload)

	tampered := append([]byte(nil), payload...)
	tampered[size/2] ^= 0xFF
	tampered[size/2+1] ^= 0xFF // sixteen bad bits defeat single-error correction

	for _, b := range tampered {
		pushByte(p, b)
	}

	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)
	for _, b := range crcBytes {
		pushByte(p, b)
	}

	combined := append(append([]byte(nil), payload...), crcBytes[:]...)
	parity := HammingEncode(combined)

	var parityBytes [2]byte
	binary.BigEndian.PutUint16(parityBytes[:], parity)
	for _, b := range parityBytes {
		pushByte(p, b)
	}

	require.True(t, p.Full())
	assert.False(t, p.Valid())
}

func Test_Packet_SingleBitFlipIsHammingCorrected(t *testing.T) {
	size := 52
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i*17 + 3)
	}

	p := NewPacket(size, packetTestCRCSeed)

	crc := Crc32Seeded(packetTestCRCSeed, payload)
	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)

	combined := append(append([]byte(nil), payload...), crcBytes[:]...)
	parity := HammingEncode(combined)

	tampered := append([]byte(nil), payload...)
	tampered[10] ^= 0x01

	for _, b := range tampered {
		pushByte(p, b)
	}

	for _, b := range crcBytes {
		pushByte(p, b)
	}

	var parityBytes [2]byte
	binary.BigEndian.PutUint16(parityBytes[:], parity)
	for _, b := range parityBytes {
		pushByte(p, b)
	}

	require.True(t, p.Full())
	assert.True(t, p.Corrected())
	assert.True(t, p.Valid())
	assert.Equal(t, payload, p.Data())
}
