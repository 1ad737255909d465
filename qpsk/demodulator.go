package qpsk

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Per-sample QPSK demodulator: carrier mixing, carrier
 *		rejection, carrier-phase tracking, alignment correlation,
 *		symbol-timing recovery, and symbol decision.
 *
 * Description:	Each Process call mixes one incoming sample against a
 *		locally generated quadrature reference (from the PLL's
 *		tracked phase), runs the mixed I/Q pair through a
 *		CarrierRejectionFilter each, and feeds the filtered output
 *		into a 3-column Bay. The PLL is stepped every sample from a
 *		decision-directed phase detector, so a transmit-clock
 *		offset of several percent is tracked continuously through
 *		payload modulation. The known leading run of zero bytes in
 *		the preamble puts both quadrature sums negative; a
 *		sustained positive balance before the first alignment peak
 *		means the loop settled half a cycle off (an inverted line
 *		is indistinguishable from this), and the reference is
 *		flipped half a cycle once to compensate.
 *
 *		The Correlator runs every sample looking for the alignment
 *		sequence; a peak marks the instant the sequence's last
 *		symbol has exactly filled the newest Bay column. The first
 *		peak anchors the symbol clock: the next decision is
 *		scheduled one symbol period later, when the following
 *		symbol has filled that column, and from then on every
 *		decision re-arms the next one itself, nudged by one sample
 *		in either direction by a Gardner early/late timing
 *		detector, which keeps the symbol clock converged on a
 *		drifting transmit clock. Later peaks are boundary events
 *		for the consumer, not clock edits.
 *
 *---------------------------------------------------------------*/

// quarterWaveSteps is the number of linear-interpolation intervals
// spanning one quarter cycle. With 4x that many steps per full cycle,
// worst-case interpolation error is far under the 1/256-cycle bound
// the quadrature reference must hold.
const quarterWaveSteps = 256

var quarterWaveLUT [quarterWaveSteps + 1]float32

func init() {
	for i := 0; i <= quarterWaveSteps; i++ {
		quarterWaveLUT[i] = float32(math.Cos(float64(i) / float64(quarterWaveSteps) * math.Pi / 2))
	}
}

// quarterCos linearly interpolates cos(x*pi/2) for x in [0, 1] from the
// quarter-wave lookup table.
func quarterCos(x float32) float32 {
	idx := x * float32(quarterWaveSteps)
	i0 := int(idx)

	if i0 >= quarterWaveSteps {
		return quarterWaveLUT[quarterWaveSteps]
	}

	t := idx - float32(i0)

	return quarterWaveLUT[i0] + t*(quarterWaveLUT[i0+1]-quarterWaveLUT[i0])
}

// quadratureRefs returns (cos(2*pi*phase), -sin(2*pi*phase)) for a
// normalized phase in [0, 1), built from one quarter-wave table by
// quadrant symmetry.
func quadratureRefs(phase float32) (iRef, qRef float32) {
	p := phase * 4
	quadrant := int(p)

	if quadrant > 3 {
		quadrant = 3
	}

	frac := p - float32(quadrant)
	a := quarterCos(frac)
	b := quarterCos(1 - frac)

	var cosAngle, sinAngle float32

	switch quadrant {
	case 0:
		cosAngle, sinAngle = a, b
	case 1:
		cosAngle, sinAngle = -b, a
	case 2:
		cosAngle, sinAngle = -a, -b
	default:
		cosAngle, sinAngle = b, -a
	}

	return cosAngle, -sinAngle
}

// DemodState is the Demodulator's own coarse-to-fine acquisition
// state, reported through Telemetry; it is distinct from (and nested
// inside) the Decoder's own top-level state machine.
type DemodState int

const (
	DemodWait DemodState = iota
	DemodSeek
	DemodSync
	DemodDecide
)

func (s DemodState) String() string {
	switch s {
	case DemodWait:
		return "WAIT"
	case DemodSeek:
		return "SEEK"
	case DemodSync:
		return "SYNC"
	case DemodDecide:
		return "DECIDE"
	default:
		return "UNKNOWN"
	}
}

// powerOnThreshold is the smoothed |i|+|q| level above which a carrier
// is considered present. Chosen well below a nominal unit-amplitude
// carrier's steady-state power so heavy attenuation or noise doesn't
// flicker the state back to WAIT.
const powerOnThreshold = 0.03

// carrierSenseFloor is the smoothed power below which the phase
// detector and polarity resolver are muted rather than amplified
// toward noise.
const carrierSenseFloor = 1e-3

// powerFilterCoefficient sets the signal-power one-pole's time
// constant; small enough to ride through per-symbol zero crossings.
const powerFilterCoefficient = 0.01

// balanceFilterCoefficient sets the quadrature-balance one-pole's time
// constant; it must settle well inside the preamble's zero-byte run.
const balanceFilterCoefficient = 0.02

// symbolQueueCapacity bounds how many decided symbols can be buffered
// between Demodulator.Process calls and the consumer's PopSymbol
// calls. The consumer drains every available symbol each worker
// iteration, so this only needs headroom for a handful of symbols.
const symbolQueueCapacity = 16

// Demodulator converts a sample stream into a lazy stream of Symbols.
type Demodulator struct {
	symbolDuration int     // L, samples per symbol
	carrier        float32 // nominal carrier, cycles/sample

	pll  PhaseLockedLoop
	iCRF *CarrierRejectionFilter
	qCRF *CarrierRejectionFilter
	iBay *Bay[float32]
	qBay *Bay[float32]
	corr *Correlator

	power         OnePoleLowpass
	balance       OnePoleLowpass
	decisionPhase OnePoleLowpass

	decisionCounter int
	sawPeak         bool
	tilt            float32
	early           bool
	late            bool
	lastSymbol      Symbol

	state   DemodState
	symbols *RingBuffer[Symbol]
}

// NewDemodulator builds a Demodulator for a carrier of symbolDuration
// samples per symbol (L) and a nominal carrier-to-sample-rate ratio of
// carrier cycles/sample (equal to 1/symbolDuration when the carrier
// frequency equals the symbol rate). pllKp overrides the carrier PLL's
// proportional gain; zero keeps the compiled-in default.
func NewDemodulator(symbolDuration int, carrier, pllKp float32) *Demodulator {
	const bayWidth = 3

	d := &Demodulator{
		symbolDuration: symbolDuration,
		carrier:        carrier,
		iCRF:           NewCarrierRejectionFilter(symbolDuration),
		qCRF:           NewCarrierRejectionFilter(symbolDuration),
		iBay:           NewBay[float32](symbolDuration, bayWidth),
		qBay:           NewBay[float32](symbolDuration, bayWidth),
		corr:           NewCorrelator(symbolDuration, bayWidth),
		symbols:        NewRingBuffer[Symbol](symbolQueueCapacity),
	}

	if pllKp != 0 {
		d.pll.SetGains(pllKp)
	}

	d.Reset()

	return d
}

// Reset clears all demodulator state back to WAIT, as at cold start.
func (d *Demodulator) Reset() {
	d.pll.Init(d.carrier)
	d.iCRF.Init()
	d.qCRF.Init()
	d.iBay.Init()
	d.qBay.Init()
	d.corr.Init()
	d.power.Init(powerFilterCoefficient)
	d.balance.Init(balanceFilterCoefficient)
	d.decisionPhase.Init(powerFilterCoefficient)
	d.decisionCounter = 0
	d.sawPeak = false
	d.tilt = 0.5
	d.early = false
	d.late = false
	d.lastSymbol = SymbolNone
	d.state = DemodWait
	d.symbols.Init()
}

// Process advances the demodulator by one sample.
func (d *Demodulator) Process(sample float32) {
	iRef, qRef := quadratureRefs(d.pll.Phase())

	i := d.iCRF.Process(sample * iRef)
	q := d.qCRF.Process(sample * qRef)

	d.iBay.Write(i)
	d.qBay.Write(q)

	d.power.Process(abs32(i) + abs32(q))
	d.balance.Process(i + q)

	d.resolvePolarity()

	peak := d.corr.Process(d.iBay, d.qBay)

	if peak {
		d.sawPeak = true
		d.tilt = d.corr.Tilt()

		if d.decisionCounter == 0 {
			// The alignment's last symbol has exactly filled the
			// newest Bay column, so the following symbol fills it one
			// symbol period from now. This only anchors a dormant
			// symbol clock; once decisions are free-running the clock
			// is maintained by the Gardner detector alone and later
			// peaks are boundary events, never clock edits — a peak
			// rewriting a live countdown would drop the pending
			// symbol.
			d.decisionCounter = d.symbolDuration
		}
	}

	if d.decisionCounter > 0 {
		d.decisionCounter--

		if d.decisionCounter == 0 {
			d.decideSymbol()
		}
	}

	phaseErr := d.carrierPhaseError(i, q)

	if peak {
		// One sample of symbol-timing skew equals 1/L of a carrier
		// cycle, so the correlator's sub-sample tilt doubles as a
		// carrier-phase trim.
		phaseErr += d.tilt / float32(d.symbolDuration)
	}

	d.pll.Process(phaseErr)

	d.updateState(peak)
}

// carrierPhaseError is the decision-directed phase detector stepping
// the PLL every sample: the filtered (i, q) point's distance from the
// nearest constellation diagonal, normalized by signal power so loop
// dynamics are independent of input level. It is zero (to first
// order) at exact lock and at each quarter-cycle rotation of it; the
// polarity resolver rules the half-cycle rotation out, and a
// quarter-cycle lock leaves the correlator silent, which the decoder
// times out as a sync failure.
func (d *Demodulator) carrierPhaseError(i, q float32) float32 {
	norm := d.power.Output()
	if norm < carrierSenseFloor {
		return 0
	}

	err := q*sign32(i) - i*sign32(q)

	return clamp32(err/norm, -0.5, 0.5)
}

// resolvePolarity watches the preamble's leading zero-byte run, whose
// constant symbol puts both quadrature sums negative. A sustained
// positive balance before the first alignment peak means the carrier
// loop settled half a cycle off -- a polarity-inverted line looks
// exactly like this -- so the reference is flipped half a cycle once,
// before any alignment sequence is scored against the wrong signs.
func (d *Demodulator) resolvePolarity() {
	if d.sawPeak {
		return
	}

	power := d.power.Output()
	if power < carrierSenseFloor {
		return
	}

	if d.balance.Output() > 0.5*power {
		d.pll.ShiftPhase(0.5)
		d.balance.Init(balanceFilterCoefficient)
	}
}

// gardnerThreshold is the noise floor below which a Gardner timing
// error is treated as zero rather than nudging the decision instant.
const gardnerThreshold = 1e-4

// gardnerError computes the classic Gardner timing-error term at one
// decision instant: the difference between this symbol's and the
// previous symbol's centre samples, weighted by the sample at the
// boundary between them. At a centred symbol clock the boundary sample
// sits on the transition zero-crossing and the term vanishes; a
// positive value means the clock is running late, negative early.
func gardnerError(iBay, qBay *Bay[float32], symbolDuration int) float32 {
	mid := symbolDuration / 2

	iErr := (iBay.Column(0).At(mid) - iBay.Column(1).At(mid)) * iBay.Column(1).At(0)
	qErr := (qBay.Column(0).At(mid) - qBay.Column(1).At(mid)) * qBay.Column(1).At(0)

	return iErr + qErr
}

// decideSymbol forms a symbol from the signs of the newest Bay
// column's sums -- the column the just-completed symbol has exactly
// filled -- then runs the Gardner early/late timing detector and
// re-arms the next decision one symbol period away, nudged by one
// sample in whichever direction the timing error calls for.
func (d *Demodulator) decideSymbol() {
	iSign := d.iBay.Column(0).Sum() > 0
	qSign := d.qBay.Column(0).Sum() > 0

	var symbol Symbol
	if iSign {
		symbol |= 2
	}
	if qSign {
		symbol |= 1
	}

	d.lastSymbol = symbol
	d.symbols.Push(symbol)

	gerr := gardnerError(d.iBay, d.qBay, d.symbolDuration)
	d.decisionPhase.Process(gerr)
	d.early = gerr < -gardnerThreshold
	d.late = gerr > gardnerThreshold

	next := d.symbolDuration

	switch {
	case d.early:
		next++
	case d.late:
		next--
	}

	d.decisionCounter = next
}

func (d *Demodulator) updateState(peak bool) {
	switch {
	case d.power.Output() < powerOnThreshold:
		d.state = DemodWait
	case peak:
		d.state = DemodSync
	case d.sawPeak:
		d.state = DemodDecide
	default:
		d.state = DemodSeek
	}
}

// SymbolsAvailable reports how many decided symbols are queued.
func (d *Demodulator) SymbolsAvailable() int { return d.symbols.Available() }

// PopSymbol returns the next decided symbol, or (SymbolNone, false) if
// none is queued.
func (d *Demodulator) PopSymbol() (Symbol, bool) {
	s, ok := d.symbols.Pop()
	if !ok {
		return SymbolNone, false
	}

	return s, true
}

func (d *Demodulator) State() DemodState         { return d.state }
func (d *Demodulator) Tilt() float32             { return d.tilt }
func (d *Demodulator) DecisionPhase() float32    { return d.decisionPhase.Output() }
func (d *Demodulator) Early() bool               { return d.early }
func (d *Demodulator) Late() bool                { return d.late }
func (d *Demodulator) LastSymbol() Symbol        { return d.lastSymbol }
func (d *Demodulator) Power() float32            { return d.power.Output() }
func (d *Demodulator) CorrelatorOutput() float32 { return d.corr.Output() }
func (d *Demodulator) PLLPhase() float32         { return d.pll.Phase() }
func (d *Demodulator) PLLStep() float32          { return d.pll.Step() }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}

	return v
}

func sign32(v float32) float32 {
	if v < 0 {
		return -1
	}

	return 1
}

func clamp32(v, lo, hi float32) float32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
