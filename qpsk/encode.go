package qpsk

import (
	"encoding/binary"
	"math"
	"math/rand"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Reference wire-format encoder and signal-impairment test
 *		helpers. Not part of the receive path: this is bench/test
 *		tooling, exposed as package-level functions so the test
 *		suite and cmd/qpsk-encode share one implementation.
 *
 *---------------------------------------------------------------*/

// EncodeConfig mirrors the channel parameters a matching Decoder
// Config would use.
type EncodeConfig struct {
	SymbolDuration  int // L
	PacketSize      int // P
	PacketsPerBlock int // N
	CRCSeed         uint32
	Carrier         float32 // defaults to 1/SymbolDuration
}

func (c EncodeConfig) withDefaults() EncodeConfig {
	if c.Carrier == 0 {
		c.Carrier = 1 / float32(c.SymbolDuration)
	}

	return c
}

var preambleBytes = func() []byte {
	b := make([]byte, 0, 16)

	for i := 0; i < 8; i++ {
		b = append(b, 0x00)
	}

	for i := 0; i < 4; i++ {
		b = append(b, 0x99)
	}

	for i := 0; i < 4; i++ {
		b = append(b, 0xCC)
	}

	return b
}()

// bytesToSymbols expands each byte into four symbols, MSB first:
// symbol0 = bits[7:6] ... symbol3 = bits[1:0].
func bytesToSymbols(data []byte) []Symbol {
	syms := make([]Symbol, 0, len(data)*4)

	for _, b := range data {
		syms = append(syms,
			Symbol((b>>6)&3),
			Symbol((b>>4)&3),
			Symbol((b>>2)&3),
			Symbol(b&3),
		)
	}

	return syms
}

// packetSymbols builds the full symbol sequence for one packet:
// optional preamble, the 2-symbol alignment, payload, CRC and Hamming
// parity.
func packetSymbols(payload []byte, crcSeed uint32, includePreamble bool) []Symbol {
	var syms []Symbol

	if includePreamble {
		syms = append(syms, bytesToSymbols(preambleBytes)...)
	}

	syms = append(syms, alignmentSequence[:]...)
	syms = append(syms, bytesToSymbols(payload)...)

	crc := Crc32Seeded(crcSeed, payload)

	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)
	syms = append(syms, bytesToSymbols(crcBytes[:])...)

	combined := make([]byte, 0, len(payload)+4)
	combined = append(combined, payload...)
	combined = append(combined, crcBytes[:]...)
	parity := HammingEncode(combined)

	var parityBytes [2]byte
	binary.BigEndian.PutUint16(parityBytes[:], parity)
	syms = append(syms, bytesToSymbols(parityBytes[:])...)

	return syms
}

// blockSymbols builds the symbol sequence for one block of
// cfg.PacketsPerBlock packets, each cfg.PacketSize bytes; block must
// have exactly that many bytes. firstPacket controls whether the
// block's first packet carries the cold-start preamble.
func blockSymbols(block []byte, cfg EncodeConfig, firstPacket bool) []Symbol {
	if len(block) != cfg.PacketSize*cfg.PacketsPerBlock {
		panic("qpsk: block length must be PacketSize*PacketsPerBlock")
	}

	var syms []Symbol

	for i := 0; i < cfg.PacketsPerBlock; i++ {
		payload := block[i*cfg.PacketSize : (i+1)*cfg.PacketSize]
		syms = append(syms, packetSymbols(payload, cfg.CRCSeed, firstPacket && i == 0)...)
	}

	return syms
}

// samplesFromSymbols generates one symbolDuration-sample run per
// symbol of a continuous-phase carrier at carrier cycles/sample,
// amplitude-modulated by each symbol's (I, Q) sign pair:
// s[n] = Isign*cos(2*pi*phase) - Qsign*sin(2*pi*phase). Returns the
// samples and the carrier phase at the end of the run, so callers can
// chain multiple calls without a carrier phase discontinuity.
func samplesFromSymbols(symbols []Symbol, carrier float32, symbolDuration int, startPhase float64) ([]float32, float64) {
	samples := make([]float32, 0, len(symbols)*symbolDuration)
	phase := startPhase

	for _, s := range symbols {
		iSign := -1.0
		if s.ISign() {
			iSign = 1.0
		}

		qSign := -1.0
		if s.QSign() {
			qSign = 1.0
		}

		for n := 0; n < symbolDuration; n++ {
			angle := 2 * math.Pi * phase
			samples = append(samples, float32(iSign*math.Cos(angle)-qSign*math.Sin(angle)))

			phase += float64(carrier)
			if phase >= 1 {
				phase -= 1
			}
		}
	}

	return samples, phase
}

// EncodeBlock encodes a single block (cfg.PacketsPerBlock packets of
// cfg.PacketSize bytes each, payload length must equal their
// product) into the corresponding sample stream, including the
// cold-start preamble on its first packet.
func EncodeBlock(payload []byte, cfg EncodeConfig) []float32 {
	cfg = cfg.withDefaults()
	syms := blockSymbols(payload, cfg, true)
	samples, _ := samplesFromSymbols(syms, cfg.Carrier, cfg.SymbolDuration, 0)

	return samples
}

// EncodeStream encodes a sequence of blocks back-to-back with a
// continuous carrier phase and only the first block's first packet
// carrying the preamble, matching a real cold-start transmission of
// multiple blocks.
func EncodeStream(blocks [][]byte, cfg EncodeConfig) []float32 {
	cfg = cfg.withDefaults()

	var all []Symbol

	for i, block := range blocks {
		all = append(all, blockSymbols(block, cfg, i == 0)...)
	}

	samples, _ := samplesFromSymbols(all, cfg.Carrier, cfg.SymbolDuration, 0)

	return samples
}

// Resample linearly interpolates samples to a new length of
// len(samples)/ratio, modeling a transmit/receive clock mismatch
// (ratio > 1 speeds the apparent clock up, < 1 slows it down).
func Resample(samples []float32, ratio float64) []float32 {
	if len(samples) == 0 || ratio <= 0 {
		return nil
	}

	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)

	for i := range out {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)

		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]

			continue
		}

		t := float32(srcPos - float64(i0))
		out[i] = samples[i0] + t*(samples[i0+1]-samples[i0])
	}

	return out
}

// Scale multiplies every sample by level, modeling signal attenuation
// or gain (a negative level also models a polarity-inverted line).
func Scale(samples []float32, level float32) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s * level
	}

	return out
}

// AddNoise adds independent Gaussian noise of standard deviation
// sigma to every sample.
func AddNoise(samples []float32, sigma float64, rng *rand.Rand) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s + float32(rng.NormFloat64()*sigma)
	}

	return out
}

// AddOffset adds a constant DC bias to every sample, modeling an
// un-AC-coupled input.
func AddOffset(samples []float32, offset float32) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s + offset
	}

	return out
}
