package qpsk

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Rather than mixing a simulated carrier against sin/cos and
// lowpassing to find the phase error (as the real Demodulator does),
// the expected DC component is derived directly from the known input
// phase via the product-to-sum identity, which is an exact stand-in
// for what a lowpass would eventually converge to and lets the loop's
// locking behavior be tested in isolation from the CRF/mixer.
const (
	pllTestDuration = 5.0
	pllSampleRate   = 48000.0
)

var pllCarrierFrequencies = []float64{0.125, 0.05, 0.3}

var pllMismatchFactors = []float64{1.0, 0.99999, 1.00001, 0.99, 1.01, 0.95, 1.05}

func phaseDifference(a, b float64) float64 {
	d := math.Mod(a+1.0-b, 1.0)
	if d < 0 {
		d += 1.0
	}

	return d
}

func Test_PhaseLockedLoop_LocksAcrossCarrierAndMismatchMatrix(t *testing.T) {
	for _, carrier := range pllCarrierFrequencies {
		for _, mismatch := range pllMismatchFactors {
			carrier, mismatch := carrier, mismatch

			t.Run(fmt.Sprintf("carrier=%g/mismatch=%g", carrier, mismatch), func(t *testing.T) {
				var pll PhaseLockedLoop
				pll.Init(float32(carrier))

				freq := carrier * mismatch

				samples := int(pllTestDuration * pllSampleRate)
				for j := 0; j < samples; j++ {
					tsec := float64(j) / pllSampleRate
					inputPhase := math.Mod(freq*float64(j), 1.0)

					delta := phaseDifference(inputPhase, float64(pll.Phase()))
					i := 0.5 * math.Cos(-2*math.Pi*delta)
					q := 0.5 * math.Sin(-2*math.Pi*delta)
					phaseError := q - i

					if tsec > 0.25 {
						offset := phaseDifference(inputPhase, float64(pll.Phase()))
						assert.InDeltaf(t, 0.375, offset, 0.001, "j=%d t=%g", j, tsec)
					}

					pll.Process(float32(phaseError / 8))
				}
			})
		}
	}
}
