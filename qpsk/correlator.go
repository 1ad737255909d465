package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	Detect the 2-symbol alignment sequence in the I/Q Bays
 *		and report the sub-sample tilt of the true symbol centre.
 *
 * Description:	For each of the kAlignmentLength Bay columns, the
 *		expected I/Q signs of the corresponding alignment symbol
 *		multiply that column's running sum; the signed total is
 *		the correlation score for this sample. A peak is a local
 *		maximum of that score, one sample in the past (so the
 *		sample after it is already visible), above a threshold
 *		proportional to the Bay's total capacity. The peak is
 *		refined to a sub-sample tilt by parabolic interpolation
 *		over the three most recent correlation scores.
 *
 *---------------------------------------------------------------*/

const kAlignmentLength = 2

// Correlator finds the alignment sequence {Symbol10, Symbol01} in a
// pair of I/Q Bays fed by the demodulator's carrier-rejection filters.
type Correlator struct {
	history *Window[float32]
	age     uint64
	ripeAge uint64
	maximum float32
	output  float32
	tilt    float32
}

// NewCorrelator builds a Correlator for Bays of the given length
// (samples per symbol) and width (columns), used to compute the peak
// threshold and the age (half the Bay's capacity) before which no
// correlation score is computed.
func NewCorrelator(bayLength, bayWidth int) *Correlator {
	c := &Correlator{
		history: NewWindow[float32](3),
		ripeAge: uint64(bayLength*bayWidth) / 2,
	}
	c.Reset()

	return c
}

func (c *Correlator) Init() { c.Reset() }

func (c *Correlator) Reset() {
	c.history.Init()
	c.age = 0
	c.maximum = 0
	c.output = 0
	c.tilt = 0.5
}

// Process scores the current sample against the alignment sequence
// using the I and Q Bays, and reports whether a valid peak — the
// alignment sequence centred in the Bay history — was just found.
func (c *Correlator) Process(iBay, qBay *Bay[float32]) bool {
	var correlation float32

	c.age++
	if c.age >= c.ripeAge {
		for i := 0; i < kAlignmentLength; i++ {
			symbol := alignmentSequence[kAlignmentLength-1-i]

			iSum := iBay.Column(i).Sum()
			qSum := qBay.Column(i).Sum()

			if symbol.ISign() {
				correlation += iSum
			} else {
				correlation -= iSum
			}

			if symbol.QSign() {
				correlation += qSum
			} else {
				correlation -= qSum
			}
		}
	}

	c.output = correlation

	if correlation < 0 {
		// Reset the peak detector at each valley so several
		// consecutive peaks can be detected.
		c.maximum = 0
	} else if correlation > c.maximum {
		c.maximum = correlation
	}

	c.history.Write(correlation)

	threshold := float32(c.ripeAge)
	peak := c.history.At(1) == c.maximum &&
		c.history.At(0) < c.maximum &&
		c.maximum >= threshold

	if peak {
		left := c.history.At(1) - c.history.At(2)
		right := c.history.At(1) - c.history.At(0)

		// Parabolic interpolation assumes left+right > 0; when the
		// denominator is near zero (a very clean signal), fall back to
		// a tilt of 0.5 rather than divide by ~0.
		if denom := left + right; denom > 1e-9 || denom < -1e-9 {
			c.tilt = 0.5 * (left - right) / denom
		} else {
			c.tilt = 0.5
		}
	}

	center := iBay.Length() / 2
	lastSymbol := alignmentSequence[kAlignmentLength-1]

	iCorrelated := sameSign(iBay.Column(0).At(center), lastSymbol.ISign())
	qCorrelated := sameSign(qBay.Column(0).At(center), lastSymbol.QSign())

	return peak && iCorrelated && qCorrelated
}

func sameSign(v float32, positive bool) bool {
	if positive {
		return v > 0
	}

	return v < 0
}

func (c *Correlator) Output() float32 { return c.output }
func (c *Correlator) Tilt() float32   { return c.tilt }
