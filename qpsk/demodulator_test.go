package qpsk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_QuadratureRefs_MatchesReference(t *testing.T) {
	for phase := float32(0); phase < 1; phase += 1.0 / 4096 {
		iRef, qRef := quadratureRefs(phase)

		angle := 2 * math.Pi * float64(phase)

		assert.InDelta(t, math.Cos(angle), float64(iRef), 1e-4, "phase %f", phase)
		assert.InDelta(t, -math.Sin(angle), float64(qRef), 1e-4, "phase %f", phase)
	}
}

func Test_Demodulator_PopSymbolEmpty(t *testing.T) {
	d := NewDemodulator(8, 1.0/8, 0)

	s, ok := d.PopSymbol()

	assert.False(t, ok)
	assert.Equal(t, SymbolNone, s)
	assert.Equal(t, SymbolNone, d.LastSymbol())
}

// demodulateAll feeds every sample through d and collects the decided
// symbol stream.
func demodulateAll(d *Demodulator, samples []float32) []Symbol {
	var symbols []Symbol

	for _, s := range samples {
		d.Process(s)

		for d.SymbolsAvailable() > 0 {
			sym, _ := d.PopSymbol()
			symbols = append(symbols, sym)
		}
	}

	return symbols
}

// containsSymbols reports whether needle appears as a contiguous run
// inside haystack.
func containsSymbols(haystack, needle []Symbol) bool {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return false
	}

outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, want := range needle {
			if haystack[i+j] != want {
				continue outer
			}
		}

		return true
	}

	return false
}

func Test_Demodulator_RecoversPayloadSymbolsFromCleanStream(t *testing.T) {
	const (
		L = 8
		P = 52
	)

	payload := make([]byte, P)
	for i := range payload {
		payload[i] = byte(i*5 + 1)
	}

	cfg := EncodeConfig{SymbolDuration: L, PacketSize: P, PacketsPerBlock: 1, CRCSeed: 0}
	samples := EncodeBlock(payload, cfg)

	d := NewDemodulator(L, 1.0/L, 0)
	symbols := demodulateAll(d, samples)

	require.NotEmpty(t, symbols)
	assert.Equal(t, DemodDecide, d.State())

	expected := bytesToSymbols(payload[:4])
	assert.True(t, containsSymbols(symbols, expected),
		"payload symbol run not found in decided stream")
}

func Test_Demodulator_RecoversPayloadSymbolsFromInvertedStream(t *testing.T) {
	const (
		L = 8
		P = 52
	)

	payload := make([]byte, P)
	for i := range payload {
		payload[i] = byte(i*5 + 1)
	}

	cfg := EncodeConfig{SymbolDuration: L, PacketSize: P, PacketsPerBlock: 1, CRCSeed: 0}
	samples := Scale(EncodeBlock(payload, cfg), -1)

	d := NewDemodulator(L, 1.0/L, 0)
	symbols := demodulateAll(d, samples)

	require.NotEmpty(t, symbols)

	expected := bytesToSymbols(payload[:4])
	assert.True(t, containsSymbols(symbols, expected),
		"payload symbol run not found in decided stream of inverted input")
}
